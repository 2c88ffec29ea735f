package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/bitmap"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/booking"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/config"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/events"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/repository"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/sweeper"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 读取配置文件
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		return
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("无法加载时区", slog.String("timezone", cfg.Booking.Timezone), slog.String("error", err.Error()))
		return
	}

	/**********************************************
	 * 连接数据库
	 **********************************************/
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", slog.String("error", err.Error()))
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	pingCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()
	if err := dbpool.PingContext(pingCtx); err != nil {
		logger.Error("无法连接到数据库", slog.String("error", err.Error()))
		return
	}

	repo := repository.NewRepository(cfg, dbpool)

	/**********************************************
	 * 连接 redis，租约总是放在 redis 里
	 **********************************************/
	rdb := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password:    cfg.Redis.Password,
		DB:          0,
		DialTimeout: time.Duration(cfg.Redis.ConnectTimeout) * time.Second,
	})
	defer rdb.Close()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Error("无法连接到 redis", slog.String("error", err.Error()))
		return
	}

	// 过期预占需要释放时间片，所以要和 API 使用同一种位图存储
	bitmapTimeout := time.Duration(cfg.Booking.BitmapOperationTimeout) * time.Second
	var bitmaps bitmap.Store
	switch cfg.Booking.BitmapBackend {
	case "redis":
		retention := time.Duration(cfg.Booking.BitmapRetentionDays) * 24 * time.Hour
		bitmaps = bitmap.NewRedisStore(rdb, "crew_booking:slots", retention, bitmapTimeout)
	case "postgres":
		bitmaps = bitmap.NewPostgresStore(dbpool, bitmapTimeout)
	default:
		logger.Error("sweeper 不支持该位图存储", slog.String("backend", cfg.Booking.BitmapBackend))
		return
	}

	/**********************************************
	 * 连接 RabbitMQ
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("无法连接到 RabbitMQ", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	// 创建通道
	ch, err := conn.Channel()
	if err != nil {
		logger.Error("无法创建通道", slog.String("error", err.Error()))
		return
	}
	defer ch.Close()

	publisher, err := events.NewPublisher(ch, cfg.RabbitMQ.Exchange, time.Duration(cfg.RabbitMQ.PublishTimeout)*time.Second)
	if err != nil {
		logger.Error("无法声明交换机", slog.String("error", err.Error()))
		return
	}

	bookings := booking.NewService(repo, bitmaps, booking.Options{
		HoldTTL:        cfg.Booking.HoldTTL,
		MaxActiveHolds: cfg.Booking.MaxActiveHolds,
	}, booking.WithEventPublisher(publisher), booking.WithLocation(loc))

	lease := sweeper.NewRedisLease(rdb, cfg.Sweeper.LeaseKey, cfg.Sweeper.LeaseDuration)
	s := sweeper.New(bookings, lease, cfg.Sweeper.Interval, cfg.Sweeper.BatchSize)

	// 监听 CTRL+C
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// 用于关闭 goroutine 的上下文
	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Run(ctx)
	}()

	logger.Info("开始清理过期预占...（按 CTRL+C 退出）",
		slog.String("lease_owner", lease.Owner()),
		slog.Duration("interval", cfg.Sweeper.Interval))
	<-sigChan

	// 优雅退出
	slog.Info("正在关闭 sweeper...")
	cancel()
	wg.Wait() // 等待所有 goroutine 完成
	slog.Info("sweeper 已成功关闭")
}
