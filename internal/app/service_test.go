package service_test

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/rollcall/internal/adapters/ledger"
	"github.com/okian/rollcall/internal/adapters/ledger/csvfile"
	"github.com/okian/rollcall/internal/adapters/ledger/memory"
	service "github.com/okian/rollcall/internal/app"
	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var fixedNow = time.Date(2026, 10, 5, 9, 30, 0, 0, time.UTC)

func newService(l ledger.Ledger, opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithClock(func() time.Time { return fixedNow }),
		service.WithLocation(time.UTC),
	}
	return service.New(l, append(base, opts...)...)
}

func sighting(id string) model.IdentityEvent {
	return model.IdentityEvent{SubjectID: id, DisplayName: "Name " + id, Confidence: 0.9}
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service that has not been started", t, func() {
		svc := newService(memory.New())

		Convey("Then sessions cannot be opened", func() {
			_, err := svc.StartSession(context.Background())
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.GetStats(context.Background()).Started, ShouldBeFalse)
		})

		Convey("And stopping is a no-op", func() {
			So(svc.Stop(context.Background()), ShouldBeNil)
		})
	})

	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := newService(memory.New())
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() { _ = svc.Stop(ctx) })

		Convey("When no session is active", func() {
			err := svc.Submit(ctx, sighting("S1"))

			Convey("Then sightings are refused", func() {
				So(errors.Is(err, service.ErrNoSession), ShouldBeTrue)
				_, err := svc.StopSession(ctx)
				So(errors.Is(err, service.ErrNoSession), ShouldBeTrue)
				_, ok := svc.Session()
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When a session is started", func() {
			info, err := svc.StartSession(ctx)
			So(err, ShouldBeNil)

			Convey("Then it has an id and is active", func() {
				So(info.ID, ShouldNotBeBlank)
				So(info.Active, ShouldBeTrue)
				So(info.StartedAt, ShouldEqual, fixedNow)
				cur, ok := svc.Session()
				So(ok, ShouldBeTrue)
				So(cur.ID, ShouldEqual, info.ID)
			})

			Convey("And a second start is refused", func() {
				again, err := svc.StartSession(ctx)
				So(errors.Is(err, service.ErrSessionActive), ShouldBeTrue)
				So(again.ID, ShouldEqual, info.ID)
			})

			Convey("And a sighting without a subject is invalid", func() {
				err := svc.Submit(ctx, model.IdentityEvent{DisplayName: "nobody"})
				So(errors.Is(err, service.ErrInvalidEvent), ShouldBeTrue)
			})

			Convey("And seven sightings then a stop record the subject once", func() {
				for i := 0; i < 7; i++ {
					So(svc.Submit(ctx, sighting("S1")), ShouldBeNil)
				}
				n, err := svc.SubmitBatch(ctx, []model.IdentityEvent{sighting("S2"), sighting("S1")})
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)

				stopped, err := svc.StopSession(ctx)
				So(err, ShouldBeNil)
				So(stopped.Active, ShouldBeFalse)
				So(stopped.StoppedAt, ShouldNotBeNil)
				So(stopped.Outcomes["confirmed"], ShouldEqual, 1)
				So(stopped.Outcomes["ignored"], ShouldEqual, 8)

				rows, err := svc.Attendance(ctx, "2026-10-05")
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 1)
				So(rows[0].ID, ShouldEqual, "S1")
				So(rows[0].Name, ShouldEqual, "Name S1")
				So(rows[0].Timestamp, ShouldEqual, "2026-10-05 09:30:00")

				Convey("Then a new session starts from empty counters", func() {
					_, err := svc.StartSession(ctx)
					So(err, ShouldBeNil)
					for i := 0; i < 6; i++ {
						So(svc.Submit(ctx, sighting("S2")), ShouldBeNil)
					}
					next, err := svc.StopSession(ctx)
					So(err, ShouldBeNil)
					So(next.Outcomes["confirmed"], ShouldEqual, 0)
					So(next.Outcomes["ignored"], ShouldEqual, 6)
				})

				Convey("And the last session is still reported", func() {
					last, ok := svc.Session()
					So(ok, ShouldBeTrue)
					So(last.Active, ShouldBeFalse)
					So(last.ID, ShouldEqual, info.ID)
				})
			})
		})

		Convey("When reading an invalid date", func() {
			_, err := svc.Attendance(ctx, "05/10/2026")
			So(errors.Is(err, service.ErrInvalidDate), ShouldBeTrue)
		})

		Convey("When collecting stats", func() {
			stats := svc.GetStats(ctx)
			So(stats.Started, ShouldBeTrue)
			So(stats.Today, ShouldEqual, "2026-10-05")
			So(stats.Timezone, ShouldEqual, "UTC")
			So(stats.Threshold, ShouldEqual, 7)
			So(stats.Session, ShouldBeNil)
			So(svc.Today(), ShouldEqual, model.DateKey("2026-10-05"))
		})
	})
}

// stallingLedger blocks reads until released.
type stallingLedger struct {
	*memory.Store
	release chan struct{}
	reads   atomic.Int64
}

func (s *stallingLedger) Records(ctx context.Context, date model.DateKey) ([]model.AttendanceRecord, error) {
	s.reads.Add(1)
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.Store.Records(ctx, date)
}

func TestService_Backpressure(t *testing.T) {
	Convey("Given a session whose storage is stalled and whose queue is tiny", t, func() {
		ctx := context.Background()
		l := &stallingLedger{Store: memory.New(), release: make(chan struct{})}
		svc := newService(l,
			service.WithThreshold(1),
			service.WithQueueSize(1),
			service.WithIOTimeout(time.Minute))
		So(svc.Start(ctx), ShouldBeNil)
		_, err := svc.StartSession(ctx)
		So(err, ShouldBeNil)

		Convey("When sightings keep arriving", func() {
			var refused error
			for i := 0; i < 1000 && refused == nil; i++ {
				refused = svc.Submit(ctx, sighting("S1"))
			}
			close(l.release)

			Convey("Then the queue eventually pushes back", func() {
				So(errors.Is(refused, service.ErrBackpressure), ShouldBeTrue)
				So(svc.Stop(ctx), ShouldBeNil)
			})
		})
	})
}

func TestService_CSVLedger(t *testing.T) {
	Convey("Given a service writing csv ledgers", t, func() {
		ctx := context.Background()
		store, err := csvfile.New(t.TempDir(), csvfile.WithLocation(time.UTC))
		So(err, ShouldBeNil)
		svc := newService(store, service.WithWorkerCount(3))
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() { _ = svc.Stop(ctx) })

		Convey("When several subjects are confirmed in one session", func() {
			_, err := svc.StartSession(ctx)
			So(err, ShouldBeNil)
			for i := 0; i < 7; i++ {
				for _, id := range []string{"ada_1", "alan_2", "grace_3"} {
					name, sid := model.ParseEnrollmentName(id)
					So(svc.Submit(ctx, model.IdentityEvent{SubjectID: sid, DisplayName: name}), ShouldBeNil)
				}
			}
			_, err = svc.StopSession(ctx)
			So(err, ShouldBeNil)

			Convey("Then the day's file holds each subject once", func() {
				data, err := os.ReadFile(store.Path("2026-10-05"))
				So(err, ShouldBeNil)
				So(string(data), ShouldStartWith, "Name,ID,Timestamp\n")
				rows, err := svc.Attendance(ctx, "2026-10-05")
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 3)
				dates, err := svc.Dates(ctx)
				So(err, ShouldBeNil)
				So(dates, ShouldResemble, []model.DateKey{"2026-10-05"})
			})
		})
	})
}
