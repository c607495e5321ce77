package api

import (
	"net/http"
	"net/http/pprof"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CreateMetricsService returns a webserver exposing the prometheus metrics on /metrics
func CreateMetricsService() *echo.Echo {
	webserver := echo.New()
	webserver.HideBanner = true
	webserver.HidePort = true

	webserver.Use(middleware.Recover())

	webserver.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return webserver
}

// CreateProfilingService returns a webserver exposing the pprof endpoints on /debug/pprof/
func CreateProfilingService() *echo.Echo {
	webserver := echo.New()
	webserver.HideBanner = true
	webserver.HidePort = true

	webserver.Use(middleware.Recover())

	group := webserver.Group("/debug/pprof")
	group.GET("/cmdline", echo.WrapHandler(http.HandlerFunc(pprof.Cmdline)))
	group.GET("/profile", echo.WrapHandler(http.HandlerFunc(pprof.Profile)))
	group.GET("/symbol", echo.WrapHandler(http.HandlerFunc(pprof.Symbol)))
	group.POST("/symbol", echo.WrapHandler(http.HandlerFunc(pprof.Symbol)))
	group.GET("/trace", echo.WrapHandler(http.HandlerFunc(pprof.Trace)))
	group.GET("/*", echo.WrapHandler(http.HandlerFunc(pprof.Index)))

	return webserver
}
