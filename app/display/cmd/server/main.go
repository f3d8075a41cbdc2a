package main

import (
	"errors"
	"flag"
	"os"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	_ "github.com/go-kratos/kratos/v2/encoding/yaml"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/iWorld-y/stock_radar/app/display/internal/conf"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	Name    = "stock_radar.display"
	Version string

	id, _ = os.Hostname()
)

var errMissingSection = errors.New("config must contain server.http and data.database")

// loadBootstrap 读取 yaml 配置，server.http 和 data.database 都必须存在
func loadBootstrap(path string) (*conf.Bootstrap, error) {
	c := config.New(config.WithSource(file.NewSource(path)))
	defer c.Close()

	if err := c.Load(); err != nil {
		return nil, err
	}
	var bc conf.Bootstrap
	if err := c.Scan(&bc); err != nil {
		return nil, err
	}
	if bc.Server == nil || bc.Server.Http == nil || bc.Data == nil || bc.Data.Database == nil {
		return nil, errMissingSection
	}
	return &bc, nil
}

func main() {
	confPath := flag.String("conf", "app/display/configs/config.yaml", "报告查看服务配置文件路径")
	flag.Parse()

	logger := log.With(log.NewStdLogger(os.Stdout),
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.id", id,
		"service.name", Name,
		"service.version", Version,
	)
	helper := log.NewHelper(logger)

	bc, err := loadBootstrap(*confPath)
	if err != nil {
		helper.Fatalf("加载配置失败: path=%s err=%v", *confPath, err)
	}

	app, cleanup, err := initApp(bc.Server, bc.Data, logger)
	if err != nil {
		helper.Fatalf("初始化报告查看服务失败: %v", err)
	}
	defer cleanup()

	helper.Infof("报告查看服务启动: addr=%s", bc.Server.Http.Addr)
	if err := app.Run(); err != nil {
		helper.Errorf("服务异常退出: %v", err)
	}
}
