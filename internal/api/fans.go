package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/markusressel/fanspeedctl/internal/fans"
)

type (
	SpeedRequest struct {
		Percent *int `json:"percent"`
	}

	RpmResponse struct {
		Rpm int64 `json:"rpm"`
	}
)

func registerFanEndpoints(rest *echo.Echo) {
	group := rest.Group("/fan")

	group.GET("/", getFans)
	group.GET("/:"+urlParamId+"/", getFan)
	group.POST("/:"+urlParamId+"/speed/", setFanSpeed)
	group.GET("/:"+urlParamId+"/rpm/", getFanRpm)
}

// returns a list of all currently configured fans
func getFans(c echo.Context) error {
	var snapshots []fans.Snapshot
	for _, fan := range fans.SortedFans() {
		snapshots = append(snapshots, fan.Snapshot())
	}
	return c.JSONPretty(http.StatusOK, snapshots, indentationChar)
}

func getFan(c echo.Context) error {
	id := c.Param(urlParamId)
	fan, exists := fans.FanMap.Get(id)
	if !exists {
		return returnNotFound(c, id)
	}
	return c.JSONPretty(http.StatusOK, fan.Snapshot(), indentationChar)
}

// ramps the fan to the requested speed, the request blocks until the ramp is done
func setFanSpeed(c echo.Context) error {
	id := c.Param(urlParamId)
	fan, exists := fans.FanMap.Get(id)
	if !exists {
		return returnNotFound(c, id)
	}

	var request SpeedRequest
	if err := c.Bind(&request); err != nil {
		return returnBadRequest(c, err)
	}
	if request.Percent == nil {
		return returnBadRequest(c, errors.New("field 'percent' is missing"))
	}

	err := fan.SetSpeed(*request.Percent)
	switch {
	case errors.Is(err, fans.ErrRange):
		return returnBadRequest(c, err)
	case errors.Is(err, fans.ErrPrecondition):
		return returnConflict(c, err)
	case err != nil:
		return returnError(c, err)
	}

	return c.JSONPretty(http.StatusOK, fan.Snapshot(), indentationChar)
}

// measures the current speed of the fan
func getFanRpm(c echo.Context) error {
	id := c.Param(urlParamId)
	fan, exists := fans.FanMap.Get(id)
	if !exists {
		return returnNotFound(c, id)
	}

	rpm, err := fan.GetRpm()
	switch {
	case errors.Is(err, fans.ErrPrecondition):
		return returnConflict(c, err)
	case err != nil:
		return returnError(c, err)
	}

	return c.JSONPretty(http.StatusOK, &RpmResponse{Rpm: rpm}, indentationChar)
}
