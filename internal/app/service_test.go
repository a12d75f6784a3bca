package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	service "github.com/okian/fairlens/internal/app"
	"github.com/okian/fairlens/internal/adapters/repository"
	"github.com/okian/fairlens/internal/domain/evaluation"
	"github.com/okian/fairlens/internal/domain/fairness"
	"github.com/okian/fairlens/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func request(requestID string) model.ReportRequest {
	return model.ReportRequest{
		RequestID: requestID,
		Outcomes:  []int{1, 1, 1, 0},
		Protected: []int{0, 0, 1, 1},
		Stratum:   []string{"a", "a", "b", "b"},
	}
}

func waitForStatus(svc *service.Service, id string) model.JobResult {
	deadline := time.Now().Add(2 * time.Second)
	for {
		res, err := svc.Report(context.Background(), id)
		if (err == nil && res.Status != model.JobPending) || time.Now().After(deadline) {
			return res
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithWorkerCount(2), service.WithQueueSize(10))
		ctx := context.Background()

		Convey("Then stats report it as stopped", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["workerCount"], ShouldEqual, 2)
			So(stats, ShouldNotContainKey, "queueLength")
		})

		Convey("When a report is submitted before starting", func() {
			_, err := svc.Submit(ctx, request(""))

			Convey("Then ErrNotStarted is returned", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})

		Convey("When the service is started and stopped", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			running := svc.GetStats()
			So(running["started"], ShouldEqual, true)
			So(running["queueCapacity"], ShouldEqual, 10)
			So(running["queueClosed"], ShouldEqual, false)
			So(running["activeWorkers"], ShouldEqual, 2)
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then it is marked as stopped", func() {
				stopped := svc.GetStats()
				So(stopped["started"], ShouldEqual, false)
				So(stopped["queueClosed"], ShouldEqual, true)
				So(stopped["activeWorkers"], ShouldEqual, 0)
				So(svc.Stop(ctx), ShouldBeNil)
			})
		})
	})
}

func TestService_Measures(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		svc := service.New()
		ctx := context.Background()

		Convey("When a group measure is requested by name", func() {
			v, err := svc.Measure(ctx, fairness.MeasureMeanDifference, []int{1, 1, 1, 0}, []int{0, 0, 1, 1})

			Convey("Then it is computed synchronously", func() {
				So(err, ShouldBeNil)
				So(v, ShouldEqual, 0.25)
			})
		})

		Convey("When the unexplained difference is requested", func() {
			res, err := svc.UnexplainedDifference(ctx, []int{1, 1, 0, 1}, []int{0, 0, 1, 1}, []string{"x", "x", "x", "x"})

			Convey("Then the stratified split is returned", func() {
				So(err, ShouldBeNil)
				So(res.Unexplained, ShouldEqual, 0.25)
			})
		})

		Convey("When situation testing runs", func() {
			res, err := svc.SituationTesting(ctx, []int{1, 1, 0, 1}, []int{0, 0, 1, 1},
				[][]float64{{0}, {1}, {0}, {10}}, model.SituationSpec{Threshold: 0.5, K: 1})

			Convey("Then the flagged fraction is returned", func() {
				So(err, ShouldBeNil)
				So(res.Fraction, ShouldEqual, 0.5)
			})
		})

		Convey("Then every registered measure is listed", func() {
			So(svc.MeasureNames(), ShouldResemble, fairness.MeasureNames())
		})
	})

	Convey("Given a service with a dataset cap", t, func() {
		svc := service.New(service.WithMaxIndividuals(3))

		Convey("When a larger dataset is measured", func() {
			_, err := svc.Measure(context.Background(), fairness.MeasureElift, []int{1, 1, 1, 0}, []int{0, 0, 1, 1})

			Convey("Then ErrDatasetTooLarge is returned", func() {
				So(errors.Is(err, evaluation.ErrDatasetTooLarge), ShouldBeTrue)
			})
		})
	})
}

func TestService_Submit(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New(service.WithWorkerCount(2), service.WithQueueSize(10))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When a valid report request is submitted", func() {
			sub, err := svc.Submit(ctx, request("req-1"))
			So(err, ShouldBeNil)
			So(sub.JobID, ShouldNotBeEmpty)
			So(sub.Duplicate, ShouldBeFalse)

			Convey("Then the job completes with a report", func() {
				res := waitForStatus(svc, sub.JobID)
				So(res.Status, ShouldEqual, model.JobDone)
				So(res.RequestID, ShouldEqual, "req-1")
				So(res.Report, ShouldNotBeNil)
				So(res.Report.Measures[fairness.MeasureMeanDifference], ShouldEqual, 0.25)
				So(res.Report.Stratified, ShouldNotBeNil)
			})

			Convey("And the same request ID is submitted again", func() {
				again, err := svc.Submit(ctx, request("req-1"))

				Convey("Then it resolves to the original job", func() {
					So(err, ShouldBeNil)
					So(again.Duplicate, ShouldBeTrue)
					So(again.JobID, ShouldEqual, sub.JobID)
				})
			})

			Convey("Then it is listed among recent reports", func() {
				list, err := svc.Reports(ctx, 10)
				So(err, ShouldBeNil)
				So(list, ShouldNotBeEmpty)
				So(list[0].ID, ShouldEqual, sub.JobID)
			})
		})

		Convey("When a request fails validation", func() {
			_, err := svc.Submit(ctx, model.ReportRequest{Outcomes: []int{1, 0}, Protected: []int{0}})

			Convey("Then it is rejected without creating a job", func() {
				So(errors.Is(err, fairness.ErrInvalidInput), ShouldBeTrue)
				So(svc.GetStats()["storedReports"], ShouldEqual, 0)
			})
		})

		Convey("When a request fails during evaluation", func() {
			req := request("")
			req.Stratum = []string{"a"}
			sub, err := svc.Submit(ctx, req)
			So(err, ShouldBeNil)

			Convey("Then the job is marked failed", func() {
				res := waitForStatus(svc, sub.JobID)
				So(res.Status, ShouldEqual, model.JobFailed)
				So(res.Error, ShouldContainSubstring, "invalid input")
			})
		})

		Convey("When an unknown job is requested", func() {
			_, err := svc.Report(ctx, "missing")

			Convey("Then ErrNotFound is returned", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}
