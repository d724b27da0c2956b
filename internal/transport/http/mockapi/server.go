package mockapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"klinedash/internal/logger"

	"github.com/gin-gonic/gin"
)

// Server 是一个按 FastAPI 后端约定实现全部接口的模拟服务。
type Server struct {
	addr   string
	router *gin.Engine
	market *Market
}

// Config 描述模拟服务依赖。
type Config struct {
	Addr string
	Seed int64
	// AsOf 是生成数据的最后一天，默认今天。
	AsOf time.Time
}

func NewServer(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8000"
	}
	if cfg.AsOf.IsZero() {
		now := time.Now()
		cfg.AsOf = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	s := &Server{addr: cfg.Addr, router: router, market: NewMarket(cfg.Seed, cfg.AsOf)}
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.registerRoutes(router.Group("/api"))
	return s
}

func (s *Server) registerRoutes(api *gin.RouterGroup) {
	stocks := api.Group("/stocks")
	stocks.GET("/list", s.handleStockList)
	stocks.GET("/date-range", s.handleDateRange)

	kl := api.Group("/kline")
	kl.GET("/data", s.handleKlineData)
	kl.GET("/minute", s.handleKlineMinute)

	api.GET("/compare/data", s.handleCompare)

	bt := api.Group("/backtest")
	bt.GET("/strategies", s.handleStrategies)
	bt.POST("/run", s.handleBacktestRun)
}

// Handler 暴露路由，供 httptest 使用。
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Market() *Market { return s.market }

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if q := c.Request.URL.RawQuery; q != "" {
			path += "?" + q
		}
		c.Next()
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", c.Request.Method, path, c.Writer.Status(), c.ClientIP(), time.Since(start))
	}
}

// Addr 返回监听地址。
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start 启动 HTTP 服务，直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Infof("mock api listening on %s", s.addr)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
