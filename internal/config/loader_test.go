package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/rollcall/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rollcall.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.Threshold, convey.ShouldEqual, 7)
				convey.So(cfg.LedgerDriver, convey.ShouldEqual, "csv")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			t.Setenv("ROLLCALL_ADDR", ":8080")
			t.Setenv("ROLLCALL_QUEUE_SIZE", "64")
			t.Setenv("ROLLCALL_WORKER_COUNT", "4")
			t.Setenv("ROLLCALL_LEDGER_DRIVER", "sqlite")
			t.Setenv("ROLLCALL_ARCHIVE_PATH_STYLE", "true")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
				convey.So(cfg.LedgerDriver, convey.ShouldEqual, "sqlite")
				convey.So(cfg.ArchivePathStyle, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			t.Setenv(config.EnvFile, writeConfigFile(t, `
addr: ":9090"
threshold: 5
ledger_dir: /var/lib/rollcall
timezone: UTC
`))
			t.Setenv("ROLLCALL_THRESHOLD", "3")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.Threshold, convey.ShouldEqual, 3)
				convey.So(cfg.LedgerDir, convey.ShouldEqual, "/var/lib/rollcall")
				convey.So(cfg.Timezone, convey.ShouldEqual, "UTC")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 1024)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			t.Setenv(config.EnvFile, writeConfigFile(t, `invalid: yaml: content: [`))

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			t.Setenv(config.EnvFile, "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the file sets an invalid value", func() {
			t.Setenv(config.EnvFile, writeConfigFile(t, "threshold: 0\n"))

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "threshold")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}
