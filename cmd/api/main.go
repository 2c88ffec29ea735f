package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/bitmap"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/booking"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/calendar"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/config"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/events"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/handler"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/metrics"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/repository"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 加载配置
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法加载配置文件", "error", err)
		return
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("无法加载时区", "timezone", cfg.Booking.Timezone, "error", err)
		return
	}

	/**********************************************
	 * 连接数据库
	 **********************************************/
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	/**********************************************
	 * 创建 repository
	 **********************************************/
	repo := repository.NewRepository(cfg, dbpool)

	/**********************************************
	 * 连接 redis
	 **********************************************/
	rdb := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password:    cfg.Redis.Password,
		DB:          0,
		DialTimeout: time.Duration(cfg.Redis.ConnectTimeout) * time.Second,
	})
	defer rdb.Close()

	/**********************************************
	 * 选择位图存储
	 **********************************************/
	bitmapTimeout := time.Duration(cfg.Booking.BitmapOperationTimeout) * time.Second
	var bitmaps bitmap.Store
	switch cfg.Booking.BitmapBackend {
	case "redis":
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Error("无法连接到 redis", "error", err)
			return
		}
		retention := time.Duration(cfg.Booking.BitmapRetentionDays) * 24 * time.Hour
		bitmaps = bitmap.NewRedisStore(rdb, "crew_booking:slots", retention, bitmapTimeout)
	case "postgres":
		bitmaps = bitmap.NewPostgresStore(dbpool, bitmapTimeout)
	case "memory":
		// 只适合单实例的开发环境，重启后占用会丢失
		logger.Warn("使用内存位图存储")
		bitmaps = bitmap.NewMemoryStore()
	default:
		logger.Error("不支持的位图存储", "backend", cfg.Booking.BitmapBackend)
		return
	}

	/**********************************************
	 * 连接 rabbitmq
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("无法连接到 rabbitmq", "error", err)
		return
	}
	defer conn.Close()

	// 建立通道
	ch, err := conn.Channel()
	if err != nil {
		logger.Error("无法建立通道", "error", err)
		return
	}
	defer ch.Close()

	publisher, err := events.NewPublisher(ch, cfg.RabbitMQ.Exchange, time.Duration(cfg.RabbitMQ.PublishTimeout)*time.Second)
	if err != nil {
		logger.Error("无法声明交换机", "exchange", cfg.RabbitMQ.Exchange, "error", err)
		return
	}

	/**********************************************
	 * 创建业务服务
	 **********************************************/
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New("crew_booking")
	}

	bookings := booking.NewService(repo, bitmaps, booking.Options{
		HoldTTL:        cfg.Booking.HoldTTL,
		MaxActiveHolds: cfg.Booking.MaxActiveHolds,
	},
		booking.WithShiftSource(repo),
		booking.WithEventPublisher(publisher),
		booking.WithMetrics(m),
		booking.WithLocation(loc),
	)
	validator := calendar.NewValidator(repo, utils.SystemClock{}, loc)

	/**********************************************
	 * 创建 handler
	 **********************************************/
	handler, err := handler.NewHandler(cfg, bookings, validator, repo, m)
	if err != nil {
		logger.Error("无法创建 handler", "error", err)
		return
	}
	handler.RegisterRoutes()

	/**********************************************
	 * 启动 HTTP 服务器
	 **********************************************/
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      handler.Mux,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("正在启动服务器...", "port", cfg.Server.Port, "bitmap_backend", cfg.Booking.BitmapBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("无法启动服务器", slog.String("error", err.Error()))
			return
		}
	}()

	<-quit
	logger.Info("正在关闭服务器...")

	ctx, cancel = context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("关闭服务器失败", slog.String("error", err.Error()))
	}
	logger.Info("服务器已成功关闭")
}
