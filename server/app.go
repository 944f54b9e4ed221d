package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ptw/config"
	"ptw/internal/api"
	"ptw/internal/db"
	"ptw/internal/health"
	"ptw/internal/logs"
	"ptw/internal/middleware"
	"ptw/internal/models"
	"ptw/internal/permit"
	"ptw/internal/sweep"

	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type App struct {
	cfg        *config.Config
	db         *gorm.DB
	Router     *mux.Router
	httpServer *http.Server
	sweeper    *sweep.Sweeper

	ctx    context.Context
	cancel context.CancelFunc
}

func (a *App) Initialize(cfg *config.Config) {
	a.cfg = cfg

	/* 1) Логи */
	logs.Init(logs.Options{
		Level:  a.cfg.Logging.Level,
		Format: a.cfg.Logging.Format,
		File:   a.cfg.Logging.File,
	})

	/* 2) DB (опционально) */
	if drv := a.cfg.Database.Driver; drv != "" {
		d, err := db.Open(drv, a.cfg.Database.DSN)
		if err != nil {
			log.Fatalf("db open failed: %v", err)
		}
		a.db = d

		if err := a.db.AutoMigrate(
			&models.Permit{},
			&models.TeamMember{},
			&models.PermitHazard{},
			&models.PermitPPE{},
			&models.ChecklistResponse{},
			&models.ApprovalRecord{},
			&models.ExtensionRequest{},
			&models.ClosureRecord{},
			&models.Site{},
			&models.Hazard{},
			&models.PPEItem{},
			&models.ChecklistQuestion{},
			&models.ApprovalPolicy{},
		); err != nil {
			log.Fatalf("db migrate failed: %v", err)
		}
	}

	store, catalog, policyRows, sweepSrc, err := buildCore(context.Background(), a.db)
	if err != nil {
		log.Fatalf("store init failed: %v", err)
	}

	// Политика согласования валидируется целиком на старте: битая роль в
	// конфигурации роняет процесс здесь, а не первый submit.
	policies, err := permit.NewPolicyTable(policyRows)
	if err != nil {
		log.Fatalf("approval policy invalid: %v", err)
	}

	svc := permit.NewService(store, catalog, policies)
	h := api.NewHandler(svc, catalog)
	a.sweeper = sweep.New(sweepSrc, a.cfg.Sweep.Interval)

	/* 3) Router + middleware */
	a.Router = mux.NewRouter().StrictSlash(true)
	a.Router.Use(
		middleware.RequestID,
		middleware.Recoverer,
		middleware.LoggerMW,
	)

	/* 4) Health */
	if a.db != nil {
		health.RegisterRoutesWithDB(a.Router, a.db) // /healthz, /readyz
	} else {
		health.RegisterRoutes(a.Router) // только /healthz
	}

	/* 5) API наряда-допуска (principal — из доверенных заголовков шлюза) */
	api.RegisterRoutes(a.Router, h,
		middleware.Principal(a.cfg.Auth.UserHeader, a.cfg.Auth.RoleHeader))

	/* (необязательно) вывести известные маршруты в лог при старте */
	_ = a.Router.Walk(func(rt *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, _ := rt.GetPathTemplate()
		methods, _ := rt.GetMethods()
		if len(methods) == 0 {
			methods = []string{"ANY"}
		}
		log.Printf("route: %-6v %s", methods, path)
		return nil
	})
}

func (a *App) Run() error {
	if a.Router == nil || a.cfg == nil {
		return fmt.Errorf("server not initialized")
	}

	bind := net.JoinHostPort(a.cfg.Server.Address, a.cfg.Server.HTTPPort)

	a.ctx, a.cancel = context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigs
		logs.Logger.Infof("shutdown signal: %s", s)
		a.cancel()
	}()

	// Периодический обход просроченных нарядов
	go a.sweeper.Run(a.ctx)

	// Жёсткие таймауты — это важно для production
	a.httpServer = &http.Server{
		Addr:              bind,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logs.Logger.Infof("HTTP listening on %s", bind)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logs.Logger.Fatalf("http server error: %v", err)
		}
	}()

	<-a.ctx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logs.Logger.Errorf("http shutdown: %v", err)
	}
	return nil
}
