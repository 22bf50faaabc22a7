package api

import (
	"fmt"
	"net/http"

	"github.com/gauss-project/powerpay/pkg/jsonhttp"
	"github.com/gauss-project/powerpay/pkg/logging/httpaccess"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"resenje.org/web"
)

const maxRequestBodySize = 16 * 1024

func (s *server) setupRouting() {
	const (
		apiVersion = "v1" // Only one api version exists, this should be configurable with more.
		rootPath   = "/" + apiVersion
	)

	router := mux.NewRouter()

	handle := func(path string, handler http.Handler) {
		router.Handle(path, handler)
		router.Handle(rootPath+path, handler)
	}

	router.NotFoundHandler = http.HandlerFunc(jsonhttp.NotFoundHandler)

	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "PowerPay probabilistic payment channels")
	})

	router.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "User-agent: *\nDisallow: /")
	})

	handle("/wallets", jsonhttp.MethodHandler{
		"POST": web.ChainHandlers(
			jsonhttp.NewMaxBodyBytesHandler(maxRequestBodySize),
			web.FinalHandlerFunc(s.walletCreateHandler),
		),
	})

	handle("/wallets/import", jsonhttp.MethodHandler{
		"POST": web.ChainHandlers(
			jsonhttp.NewMaxBodyBytesHandler(maxRequestBodySize),
			web.FinalHandlerFunc(s.walletImportHandler),
		),
	})

	handle("/wallets/{address}", jsonhttp.MethodHandler{
		"GET": http.HandlerFunc(s.walletGetHandler),
	})

	handle("/wallets/{address}/balance", jsonhttp.MethodHandler{
		"GET": http.HandlerFunc(s.walletBalanceHandler),
	})

	handle("/wallets/{address}/airdrop", jsonhttp.MethodHandler{
		"POST": web.ChainHandlers(
			jsonhttp.NewMaxBodyBytesHandler(maxRequestBodySize),
			web.FinalHandlerFunc(s.walletAirdropHandler),
		),
	})

	handle("/wallets/{address}/export", jsonhttp.MethodHandler{
		"POST": web.ChainHandlers(
			jsonhttp.NewMaxBodyBytesHandler(maxRequestBodySize),
			web.FinalHandlerFunc(s.walletExportHandler),
		),
	})

	handle("/channels", jsonhttp.MethodHandler{
		"POST": web.ChainHandlers(
			jsonhttp.NewMaxBodyBytesHandler(maxRequestBodySize),
			web.FinalHandlerFunc(s.channelCreateHandler),
		),
	})

	handle("/channels/{address}", jsonhttp.MethodHandler{
		"GET": http.HandlerFunc(s.channelGetHandler),
	})

	handle("/channels/{address}/intents", jsonhttp.MethodHandler{
		"POST": web.ChainHandlers(
			jsonhttp.NewMaxBodyBytesHandler(maxRequestBodySize),
			web.FinalHandlerFunc(s.channelIntentHandler),
		),
	})

	handle("/channels/{address}/process", jsonhttp.MethodHandler{
		"POST": web.ChainHandlers(
			jsonhttp.NewMaxBodyBytesHandler(maxRequestBodySize),
			web.FinalHandlerFunc(s.channelProcessHandler),
		),
	})

	handle("/channels/{address}/close", jsonhttp.MethodHandler{
		"POST": web.ChainHandlers(
			jsonhttp.NewMaxBodyBytesHandler(maxRequestBodySize),
			web.FinalHandlerFunc(s.channelCloseHandler),
		),
	})

	handle("/channels/{address}/simulate", jsonhttp.MethodHandler{
		"POST": web.ChainHandlers(
			jsonhttp.NewMaxBodyBytesHandler(maxRequestBodySize),
			web.FinalHandlerFunc(s.channelSimulateHandler),
		),
	})

	handle("/transactions", jsonhttp.MethodHandler{
		"POST": web.ChainHandlers(
			jsonhttp.NewMaxBodyBytesHandler(maxRequestBodySize),
			web.FinalHandlerFunc(s.transactionHandler),
		),
	})

	handle("/threshold", jsonhttp.MethodHandler{
		"GET": http.HandlerFunc(s.thresholdHandler),
	})

	s.Handler = web.ChainHandlers(
		httpaccess.NewHTTPAccessLogHandler(s.logger, logrus.InfoLevel, "api access"),
		handlers.CompressHandler,
		handlers.RecoveryHandler(handlers.PrintRecoveryStack(true), handlers.RecoveryLogger(s.logger.WithField("server", "api"))),
		s.responseCodeMetricsHandler,
		s.pageviewMetricsHandler,
		func(h http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if o := r.Header.Get("Origin"); o != "" && s.checkOrigin(r) {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
					w.Header().Set("Access-Control-Allow-Origin", o)
					w.Header().Set("Access-Control-Allow-Headers", "User-Agent, Origin, Accept, Authorization, Content-Type, X-Requested-With, Access-Control-Request-Headers, Access-Control-Request-Method")
					w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS, POST")
					w.Header().Set("Access-Control-Max-Age", "3600")
				}
				h.ServeHTTP(w, r)
			})
		},
		web.FinalHandler(router),
	)
}
