package datelock_test

import (
	"sync"
	"testing"
	"time"

	"github.com/okian/rollcall/internal/domain/datelock"
	"github.com/okian/rollcall/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLocks(t *testing.T) {
	Convey("Given a set of date locks", t, func() {
		locks := datelock.New()

		Convey("When one lock is taken per day for a week", func() {
			for _, d := range []model.DateKey{
				"2026-04-01", "2026-04-02", "2026-04-03", "2026-04-04",
				"2026-04-05", "2026-04-06", "2026-04-07",
			} {
				locks.Lock(d)()
			}

			Convey("Then only today and yesterday are kept", func() {
				So(locks.Len(), ShouldEqual, 2)
			})
		})

		Convey("When an old date is still held as a new day starts", func() {
			unlock := locks.Lock("2026-04-01")
			locks.Lock("2026-04-05")()

			Convey("Then the held lock survives", func() {
				So(locks.Len(), ShouldEqual, 2)
				unlock()
				locks.Lock("2026-04-06")()
				So(locks.Len(), ShouldEqual, 2)
			})
		})

		Convey("When the clock steps back a day", func() {
			locks.Lock("2026-04-05")()
			locks.Lock("2026-04-04")()

			Convey("Then the later date is not dropped", func() {
				So(locks.Len(), ShouldEqual, 2)
			})
		})

		Convey("When goroutines contend for the same date", func() {
			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				inside  int
				maxSeen int
			)
			for range 8 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					unlock := locks.Lock("2026-04-01")
					defer unlock()
					mu.Lock()
					inside++
					if inside > maxSeen {
						maxSeen = inside
					}
					mu.Unlock()
					time.Sleep(time.Millisecond)
					mu.Lock()
					inside--
					mu.Unlock()
				}()
			}
			wg.Wait()

			Convey("Then they run one at a time", func() {
				So(maxSeen, ShouldEqual, 1)
			})
		})
	})
}
