package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/rollcall/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Threshold, convey.ShouldEqual, 7)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 1)
			convey.So(cfg.LedgerDriver, convey.ShouldEqual, "csv")
			convey.So(cfg.LedgerDir, convey.ShouldEqual, "attendance_logs")
			convey.So(cfg.DedupeCacheDays, convey.ShouldEqual, 7)
			convey.So(cfg.IOTimeout(), convey.ShouldEqual, 5*time.Second)
			convey.So(cfg.ShutdownTimeout(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("And the local zone is the default location", func() {
			loc, err := cfg.Location()
			convey.So(err, convey.ShouldBeNil)
			convey.So(loc, convey.ShouldEqual, time.Local)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given invalid settings", t, func() {
		cases := map[string]func(*config.Config){
			"empty addr":       func(c *config.Config) { c.Addr = "" },
			"zero threshold":   func(c *config.Config) { c.Threshold = 0 },
			"zero queue":       func(c *config.Config) { c.QueueSize = 0 },
			"no workers":       func(c *config.Config) { c.WorkerCount = 0 },
			"unknown driver":   func(c *config.Config) { c.LedgerDriver = "redis" },
			"csv without dir":  func(c *config.Config) { c.LedgerDir = "" },
			"bad timezone":     func(c *config.Config) { c.Timezone = "Mars/Olympus" },
			"bad log format":   func(c *config.Config) { c.LogFormat = "xml" },
			"negative timeout": func(c *config.Config) { c.IOTimeoutMS = -1 },
		}
		for name, mutate := range cases {
			convey.Convey("When "+name, func() {
				cfg := config.New()
				mutate(cfg)

				convey.Convey("Then validation fails", func() {
					err := cfg.Validate()
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				})
			})
		}
	})

	convey.Convey("Given a named timezone", t, func() {
		cfg := config.New()
		cfg.Timezone = "Europe/Berlin"

		convey.Convey("Then it resolves", func() {
			loc, err := cfg.Location()
			convey.So(err, convey.ShouldBeNil)
			convey.So(loc.String(), convey.ShouldEqual, "Europe/Berlin")
		})
	})
}
