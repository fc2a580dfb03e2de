package model_test

import (
	"errors"
	"testing"
	"time"

	model "github.com/okian/rollcall/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestDateOf(t *testing.T) {
	convey.Convey("Given an instant near midnight UTC", t, func() {
		ts := time.Date(2026, 3, 9, 23, 30, 0, 0, time.UTC)

		convey.Convey("When keyed in UTC", func() {
			convey.So(model.DateOf(ts, time.UTC), convey.ShouldEqual, model.DateKey("2026-03-09"))
		})

		convey.Convey("When keyed in a zone ahead of UTC", func() {
			loc := time.FixedZone("plus2", 2*60*60)
			convey.So(model.DateOf(ts, loc), convey.ShouldEqual, model.DateKey("2026-03-10"))
		})

		convey.Convey("When no location is given", func() {
			convey.So(model.DateOf(ts, nil), convey.ShouldEqual, model.DateKey("2026-03-09"))
		})
	})
}

func TestParseDate(t *testing.T) {
	convey.Convey("Given date strings", t, func() {
		d, err := model.ParseDate("2026-01-31")
		convey.So(err, convey.ShouldBeNil)
		convey.So(d.Valid(), convey.ShouldBeTrue)
		convey.So(d.String(), convey.ShouldEqual, "2026-01-31")

		_, err = model.ParseDate("2026-02-30")
		convey.So(err, convey.ShouldNotBeNil)

		convey.So(model.DateKey("yesterday").Valid(), convey.ShouldBeFalse)
	})
}

func TestDatePrev(t *testing.T) {
	convey.Convey("Given calendar dates", t, func() {
		convey.So(model.DateKey("2026-03-10").Prev(), convey.ShouldEqual, model.DateKey("2026-03-09"))
		convey.So(model.DateKey("2026-03-01").Prev(), convey.ShouldEqual, model.DateKey("2026-02-28"))
		convey.So(model.DateKey("2026-01-01").Prev(), convey.ShouldEqual, model.DateKey("2025-12-31"))
		convey.So(model.DateKey("soon").Prev(), convey.ShouldEqual, model.DateKey("soon"))
	})
}

func TestParseEnrollmentName(t *testing.T) {
	convey.Convey("Given enrollment labels", t, func() {
		cases := []struct {
			label, name, id string
		}{
			{"Ada Lovelace_1815", "Ada Lovelace", "1815"},
			{"mary_ann_42", "mary_ann", "42"},
			{"nounderscore", "nounderscore", "nounderscore"},
			{"_7", "_7", "_7"},
			{"trailing_", "trailing_", "trailing_"},
		}
		for _, c := range cases {
			name, id := model.ParseEnrollmentName(c.label)
			convey.So(name, convey.ShouldEqual, c.name)
			convey.So(id, convey.ShouldEqual, c.id)
		}
	})
}

func TestOutcome(t *testing.T) {
	convey.Convey("Given every outcome", t, func() {
		convey.So(model.Ignored.String(), convey.ShouldEqual, "ignored")
		convey.So(model.Confirmed.String(), convey.ShouldEqual, "confirmed")
		convey.So(model.AlreadyPresent.String(), convey.ShouldEqual, "already_present")
		convey.So(model.StorageError.String(), convey.ShouldEqual, "storage_error")
		convey.So(model.WriteFailed.String(), convey.ShouldEqual, "write_failed")
		convey.So(model.Outcome(99).String(), convey.ShouldEqual, "unknown")

		convey.Convey("And a failed result keeps its error", func() {
			cause := errors.New("disk")
			r := model.Result{Outcome: model.StorageError, Count: 7, Err: cause}
			convey.So(r.Record, convey.ShouldBeNil)
			convey.So(errors.Is(r.Err, cause), convey.ShouldBeTrue)
		})
	})
}
