package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/rollcall/internal/adapters/ledger"
	"github.com/okian/rollcall/internal/adapters/ledger/memory"
	"github.com/okian/rollcall/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMemoryStore(t *testing.T) {
	Convey("Given an empty memory ledger", t, func() {
		s := memory.New()
		ctx := context.Background()
		at := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
		rec := model.AttendanceRecord{DisplayName: "Ada", SubjectID: "1", Timestamp: at, Date: "2026-06-01"}

		Convey("When appending and reading back", func() {
			So(s.Append(ctx, rec), ShouldBeNil)
			recs, err := s.Records(ctx, "2026-06-01")
			So(err, ShouldBeNil)
			So(recs, ShouldResemble, []model.AttendanceRecord{rec})

			Convey("Then duplicates are refused", func() {
				So(errors.Is(s.Append(ctx, rec), ledger.ErrDuplicate), ShouldBeTrue)
			})

			Convey("And returned slices are copies", func() {
				recs[0].SubjectID = "mutated"
				again, _ := s.Records(ctx, "2026-06-01")
				So(again[0].SubjectID, ShouldEqual, "1")
			})

			Convey("And dates are listed in order", func() {
				earlier := rec
				earlier.Date = "2026-05-31"
				So(s.Append(ctx, earlier), ShouldBeNil)
				dates, _ := s.Dates(ctx)
				So(dates, ShouldResemble, []model.DateKey{"2026-05-31", "2026-06-01"})
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := s.Records(cctx, "2026-06-01")
			So(errors.Is(err, ledger.ErrReadFailed), ShouldBeTrue)
			So(errors.Is(s.Append(cctx, rec), ledger.ErrWriteFailed), ShouldBeTrue)
		})

		So(s.Close(), ShouldBeNil)
	})
}
