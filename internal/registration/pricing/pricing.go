// Package pricing computes what a participant owes for a distance. It is pure:
// "today" is an argument so callers pin it to the request clock.
package pricing

import (
	"time"

	"startingline/internal/registration/models"
	"startingline/pkg/money"
)

type Waiver string

const (
	WaiverNone       Waiver = ""
	WaiverDisability Waiver = "disability"
	WaiverSenior     Waiver = "senior"
)

// Quote is the priced outcome for one participant.
type Quote struct {
	Amount money.Amount
	Age    int
	Waiver Waiver
}

// AgeOn returns the participant's completed years on today. A Feb 29 birthday
// is reached on Mar 1 in non-leap years.
func AgeOn(dob, today time.Time) int {
	dy, dm, dd := dob.Date()
	ty, tm, td := today.Date()

	age := ty - dy
	if dm == time.February && dd == 29 && !isLeap(ty) {
		dm, dd = time.March, 1
	}
	if tm < dm || (tm == dm && td < dd) {
		age--
	}
	return age
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// Price applies the waiver rules. A disabled participant rides free when the
// event or the distance waives disability fees; a senior rides free when the
// distance waives senior fees and the participant has reached the threshold.
func Price(distance *models.Distance, event *models.Event, p models.Participant, today time.Time) Quote {
	age := AgeOn(p.DateOfBirth, today)

	if p.Disabled && (event.FreeForDisabled || distance.FreeForDisability) {
		return Quote{Amount: money.Zero, Age: age, Waiver: WaiverDisability}
	}
	if distance.FreeForSeniors && distance.SeniorAgeThreshold > 0 && age >= distance.SeniorAgeThreshold {
		return Quote{Amount: money.Zero, Age: age, Waiver: WaiverSenior}
	}
	return Quote{Amount: distance.Price, Age: age, Waiver: WaiverNone}
}

// MeetsMinimumAge reports whether age satisfies the distance's minimum. A zero
// minimum admits everyone.
func MeetsMinimumAge(distance *models.Distance, age int) bool {
	return distance.MinAge <= 0 || age >= distance.MinAge
}
