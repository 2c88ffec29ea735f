package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/config"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/repository"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/seed"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int
	var country string
	var businessUnit string

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机施工队, 2: 插入随机日历配置, 3: 插入演示数据, 4: 列出所有施工队)")
	flag.IntVar(&n, "n", 5, "要插入的记录数量")
	flag.StringVar(&country, "country", "CN", "日历配置的国家代码")
	flag.StringVar(&businessUnit, "business-unit", "", "日历配置的业务单元，为空时随机生成")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 创建数据库连接池
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

	// 创建 repository
	repo := repository.NewRepository(cfg, dbpool)

	// 插入数据可能比连接数据库慢得多，使用新的上下文，单条语句的超时由 repository 控制
	ctx = context.Background()

	// 执行操作
	switch op {
	case 0:
		slog.Error("未指定操作")
	case 1:
		if n <= 0 {
			slog.Error("请输入合法的施工队数量")
		} else {
			cnt := n
			for i := 0; i < n; i++ {
				name := utils.GenerateRandomCrewName()
				shift := utils.GenerateRandomWorkTeamShift(utils.GenerateResourceCode(name), name)
				if err := utils.ValidateWorkTeamShift(shift); err != nil {
					slog.Error("生成的班次不合法", slog.String("resource_id", shift.ResourceID), slog.String("error", err.Error()))
					continue
				}

				if err := repo.UpsertWorkTeamShift(ctx, shift); err != nil {
					slog.Error("无法插入施工队", slog.String("error", err.Error()))
					continue
				}

				cnt--
			}

			slog.Info("插入施工队成功", slog.Int("count", n-cnt))
		}
	case 2:
		if n <= 0 {
			slog.Error("请输入合法的日历配置数量")
		} else {
			cnt := n
			for i := 0; i < n; i++ {
				bu := businessUnit
				if bu == "" || n > 1 {
					bu = utils.GenerateRandomID(3, 2)
				}

				calendarConfig := utils.GenerateRandomCalendarConfig(country, bu)
				if err := repo.UpsertCalendarConfig(ctx, calendarConfig); err != nil {
					slog.Error("无法插入日历配置", slog.String("error", err.Error()))
					continue
				}

				cnt--
			}

			slog.Info("插入日历配置成功", slog.Int("count", n-cnt))
		}
	case 3:
		if err := seed.SeedDemoData(ctx, repo); err != nil {
			slog.Error("无法插入演示数据", slog.String("error", err.Error()))
		}
	case 4:
		ids, err := repo.GetAllWorkTeamShiftIDs(ctx)
		if err != nil {
			slog.Error("无法获取施工队列表", slog.String("error", err.Error()))
			return
		}
		for _, id := range ids {
			slog.Info("施工队", slog.String("resource_id", id))
		}
		slog.Info("共有施工队", slog.Int("count", len(ids)))
	default:
		slog.Error("指定的操作非法")
	}
}
