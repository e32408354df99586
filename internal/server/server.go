package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/bookingrelay/internal/booking/classifier"
	"github.com/smallbiznis/bookingrelay/internal/booking/orchestrator"
	"github.com/smallbiznis/bookingrelay/internal/config"
	"github.com/smallbiznis/bookingrelay/internal/observability"
	obslogger "github.com/smallbiznis/bookingrelay/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/bookingrelay/internal/observability/metrics"
	obstracing "github.com/smallbiznis/bookingrelay/internal/observability/tracing"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(func(o *orchestrator.Orchestrator) Dispatcher { return o }),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

// Dispatcher runs one booking operation.
type Dispatcher interface {
	Dispatch(ctx context.Context, req orchestrator.Request) (*orchestrator.Response, *classifier.ClassifiedError)
}

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obsCfg.Debug()))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(httpMetrics.GinMiddleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log = log.Named("http.server")

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	dispatcher Dispatcher
	log        *zap.Logger
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Dispatcher Dispatcher
	Log        *zap.Logger
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		dispatcher: p.Dispatcher,
		log:        p.Log.Named("http.bookings"),
	}

	svc.registerBookingRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerBookingRoutes() {
	v2 := s.engine.Group("/v2")

	bookings := v2.Group("/bookings")
	{
		bookings.GET("", s.ListBookings)
		bookings.GET("/:bookingUid", s.GetBooking)
		bookings.GET("/:bookingUid/reschedule", s.GetBookingForReschedule)

		bookings.POST("", s.CreateBooking)
		bookings.POST("/recurring", s.CreateRecurringBooking)
		bookings.POST("/instant", s.CreateInstantMeeting)
		// POST routes share one wildcard name: a numeric id for cancel, a uid for no-show.
		bookings.POST("/:booking/cancel", s.CancelBooking)
		bookings.POST("/:booking/mark-no-show", s.MarkNoShow)
	}
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
