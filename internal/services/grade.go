package services

import (
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/shopspring/decimal"
)

// Default component weights, in percent.
const (
	DefaultAssignmentWeight = 20
	DefaultQuizWeight       = 20
	DefaultMidtermWeight    = 30
	DefaultFinalWeight      = 30
)

var letterScale = []struct {
	min    float64
	letter string
}{
	{90, "A+"},
	{85, "A"},
	{80, "A-"},
	{75, "B+"},
	{70, "B"},
	{65, "B-"},
	{60, "C+"},
	{55, "C"},
	{50, "C-"},
}

var gradePoints = map[string]float64{
	"A+": 4.0, "A": 4.0, "A-": 3.7,
	"B+": 3.3, "B": 3.0, "B-": 2.7,
	"C+": 2.3, "C": 2.0, "C-": 1.7,
	"F": 0,
}

// WeightedTotal is Σ score×weight/100 rounded to two places. Weights are not
// required to add up to 100.
func WeightedTotal(scores, weights [4]float64) float64 {
	total := decimal.Zero
	for i := range scores {
		total = total.Add(decimal.NewFromFloat(scores[i]).Mul(decimal.NewFromFloat(weights[i])))
	}
	return total.Div(hundred).Round(2).InexactFloat64()
}

// LetterGrade buckets a total score; lower bounds are inclusive.
func LetterGrade(total float64) string {
	for _, step := range letterScale {
		if total >= step.min {
			return step.letter
		}
	}
	return "F"
}

// ApplyDefaultWeights fills in the standard weights when none were given.
func ApplyDefaultWeights(g *model.Grade) {
	if g.AssignmentWeight == 0 && g.QuizWeight == 0 && g.MidtermWeight == 0 && g.FinalWeight == 0 {
		g.AssignmentWeight = DefaultAssignmentWeight
		g.QuizWeight = DefaultQuizWeight
		g.MidtermWeight = DefaultMidtermWeight
		g.FinalWeight = DefaultFinalWeight
	}
}

// CalculateGrade sets TotalScore and LetterGrade from the four components.
func CalculateGrade(g *model.Grade) {
	g.TotalScore = WeightedTotal(
		[4]float64{g.AssignmentScore, g.QuizScore, g.MidtermScore, g.FinalScore},
		[4]float64{g.AssignmentWeight, g.QuizWeight, g.MidtermWeight, g.FinalWeight},
	)
	g.LetterGrade = LetterGrade(g.TotalScore)
}

func GradePoints(letter string) float64 {
	return gradePoints[letter]
}

// GPA is the credit-weighted mean of grade points, rounded to two places.
// Grades of courses without credits do not count.
func GPA(grades []*model.Grade) float64 {
	points := decimal.Zero
	credits := decimal.Zero
	for _, g := range grades {
		if g.CourseCredits <= 0 {
			continue
		}
		c := decimal.NewFromInt(int64(g.CourseCredits))
		points = points.Add(decimal.NewFromFloat(GradePoints(g.LetterGrade)).Mul(c))
		credits = credits.Add(c)
	}
	if credits.IsZero() {
		return 0
	}
	return points.Div(credits).Round(2).InexactFloat64()
}
