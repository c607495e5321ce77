package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/markusressel/fanspeedctl/internal/configuration"
	"github.com/qdm12/reprint"
)

const redacted = "********"

func registerConfigEndpoints(rest *echo.Echo) {
	group := rest.Group("/config")

	group.GET("/", getConfig)
}

// returns the active configuration, credentials are redacted
func getConfig(c echo.Context) error {
	data, ok := reprint.This(configuration.CurrentConfig).(configuration.Configuration)
	if !ok {
		return returnError(c, errors.New("unable to copy configuration"))
	}
	if len(data.Mqtt.Password) > 0 {
		data.Mqtt.Password = redacted
	}
	return c.JSONPretty(http.StatusOK, data, indentationChar)
}
