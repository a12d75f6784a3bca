package fairness_test

import (
	"errors"
	"testing"

	"github.com/okian/fairlens/internal/domain/fairness"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSoftScores(t *testing.T) {
	Convey("Given distances to the favourable and unfavourable prototypes", t, func() {
		scores, err := fairness.SoftScores([][2]float64{{0, 0}, {1, 3}, {3, 1}})

		Convey("Then closer to favourable scores above one half", func() {
			So(err, ShouldBeNil)
			So(scores[0], ShouldEqual, 0.5)
			So(scores[1], ShouldAlmostEqual, 0.6224593312018546, tolerance)
			So(scores[2], ShouldAlmostEqual, 1-0.6224593312018546, tolerance)
		})
	})

	Convey("Given a negative distance", t, func() {
		_, err := fairness.SoftScores([][2]float64{{-1, 0}})

		Convey("Then it is invalid input", func() {
			So(errors.Is(err, fairness.ErrInvalidInput), ShouldBeTrue)
		})
	})
}

func TestScoreMeanDifference(t *testing.T) {
	Convey("Given soft scores for both groups", t, func() {
		Convey("Then the difference is group 0 mean minus group 1 mean", func() {
			d, err := fairness.ScoreMeanDifference([]float64{0.8, 0.6, 0.2, 0.4}, []int{0, 0, 1, 1})
			So(err, ShouldBeNil)
			So(d, ShouldAlmostEqual, 0.4, tolerance)
		})

		Convey("Then a missing group yields zero", func() {
			d, err := fairness.ScoreMeanDifference([]float64{0.8, 0.6}, []int{1, 1})
			So(err, ShouldBeNil)
			So(d, ShouldEqual, 0.0)
		})

		Convey("Then misaligned vectors are invalid input", func() {
			_, err := fairness.ScoreMeanDifference([]float64{0.8}, []int{1, 0})
			So(errors.Is(err, fairness.ErrInvalidInput), ShouldBeTrue)
		})
	})
}

func TestPredictiveEquality(t *testing.T) {
	Convey("Given actual and predicted outcomes", t, func() {
		actual := []int{0, 1, 0, 1, 1}
		predicted := []int{1, 1, 0, 0, 1}
		protected := []int{0, 0, 1, 1, 1}

		Convey("Then each cell reports its misclassification fraction", func() {
			rates, err := fairness.PredictiveEquality(actual, predicted, protected)
			So(err, ShouldBeNil)
			So(rates.UnprotectedNegative, ShouldEqual, 1.0)
			So(rates.UnprotectedPositive, ShouldEqual, 0.0)
			So(rates.ProtectedNegative, ShouldEqual, 0.0)
			So(rates.ProtectedPositive, ShouldEqual, 0.5)
		})

		Convey("Then predictions outside {0,1} are invalid input", func() {
			_, err := fairness.PredictiveEquality(actual, []int{1, 1, 0, 0, 2}, protected)
			So(errors.Is(err, fairness.ErrInvalidInput), ShouldBeTrue)
		})
	})
}
