package sqlite_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/okian/rollcall/internal/adapters/ledger"
	"github.com/okian/rollcall/internal/adapters/ledger/sqlite"
	"github.com/okian/rollcall/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSQLiteStore(t *testing.T) {
	Convey("Given a sqlite ledger on disk", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "nested", "ledger.db")
		store, err := sqlite.Open(ctx, path, time.UTC)
		So(err, ShouldBeNil)
		Reset(func() { _ = store.Close() })

		date := model.DateKey("2026-07-01")
		at := time.Date(2026, 7, 1, 10, 30, 0, 0, time.UTC)
		rec := func(id string) model.AttendanceRecord {
			return model.AttendanceRecord{DisplayName: "N" + id, SubjectID: id, Timestamp: at, Date: date}
		}

		Convey("When nothing has been written", func() {
			recs, err := store.Records(ctx, date)
			So(err, ShouldBeNil)
			So(recs, ShouldBeEmpty)
		})

		Convey("When records are appended", func() {
			So(store.Append(ctx, rec("b")), ShouldBeNil)
			So(store.Append(ctx, rec("a")), ShouldBeNil)

			Convey("Then they read back in insertion order", func() {
				recs, err := store.Records(ctx, date)
				So(err, ShouldBeNil)
				So(recs, ShouldHaveLength, 2)
				So(recs[0].SubjectID, ShouldEqual, "b")
				So(recs[1].SubjectID, ShouldEqual, "a")
				So(recs[0].Timestamp.Equal(at), ShouldBeTrue)
			})

			Convey("And a repeat subject is a duplicate", func() {
				So(errors.Is(store.Append(ctx, rec("a")), ledger.ErrDuplicate), ShouldBeTrue)
			})

			Convey("And the rows survive a reopen", func() {
				So(store.Close(), ShouldBeNil)
				again, err := sqlite.Open(ctx, path, time.UTC)
				So(err, ShouldBeNil)
				defer func() { _ = again.Close() }()
				recs, err := again.Records(ctx, date)
				So(err, ShouldBeNil)
				So(recs, ShouldHaveLength, 2)
				dates, err := again.Dates(ctx)
				So(err, ShouldBeNil)
				So(dates, ShouldResemble, []model.DateKey{date})
			})
		})

		Convey("When appends race for the same subjects", func() {
			var wg sync.WaitGroup
			var mu sync.Mutex
			wins := 0
			for g := 0; g < 6; g++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < 4; i++ {
						if store.Append(ctx, rec(fmt.Sprint(i))) == nil {
							mu.Lock()
							wins++
							mu.Unlock()
						}
					}
				}()
			}
			wg.Wait()

			Convey("Then each subject lands once", func() {
				So(wins, ShouldEqual, 4)
				recs, _ := store.Records(ctx, date)
				So(recs, ShouldHaveLength, 4)
			})
		})

		Convey("When the record is invalid", func() {
			err := store.Append(ctx, model.AttendanceRecord{SubjectID: "x", Date: "bad"})
			So(errors.Is(err, ledger.ErrInvalidRecord), ShouldBeTrue)
		})
	})
}
