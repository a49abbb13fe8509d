package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"startingline/internal/registration/models"
	id "startingline/pkg/domain"
	"startingline/pkg/money"
)

type catalogWriter interface {
	SaveEvent(ctx context.Context, event *models.Event) error
	SaveDistance(ctx context.Context, distance *models.Distance) error
	SaveMerchandise(ctx context.Context, item *models.MerchandiseItem) error
}

// Demo catalog IDs are fixed so local clients can hard-code them.
var (
	demoEventID    = id.EventID(uuid.MustParse("5b0c1f7e-2a4d-4c61-9b7e-0d4f6a3c2e10"))
	demoTenKID     = id.DistanceID(uuid.MustParse("8e2f6c1a-7d3b-4f0e-a5c9-1b6d2e4f8a21"))
	demoFiveKID    = id.DistanceID(uuid.MustParse("3c7a9e5d-1f2b-4a6c-8d0e-7f5b3a1c9e32"))
	demoVeteransID = id.DistanceID(uuid.MustParse("a1d4b7e0-3c6f-4e92-b5a8-2d7c0f3e6b43"))
	demoShirtID    = id.MerchandiseID(uuid.MustParse("f6e3d0c9-8b7a-4d15-9c2e-4a1f7b0d3e54"))
)

// seedDemoCatalog loads one event for in-memory runs.
func seedDemoCatalog(ctx context.Context, w catalogWriter) error {
	limit, stock := 500, 200
	event := &models.Event{
		ID:              demoEventID,
		Name:            "Harbour Run",
		StartDate:       time.Date(time.Now().Year()+1, time.March, 14, 0, 0, 0, 0, time.UTC),
		StartTime:       "06:30",
		City:            "Cape Town",
		Category:        "road",
		FreeForDisabled: true,
	}
	distances := []*models.Distance{
		{ID: demoTenKID, EventID: event.ID, Name: "10km", Price: money.FromUnits(150), MinAge: 12, EntryLimit: &limit},
		{ID: demoFiveKID, EventID: event.ID, Name: "5km Fun Run", Price: money.FromUnits(80)},
		{ID: demoVeteransID, EventID: event.ID, Name: "10km Veterans", Price: money.FromUnits(150),
			FreeForSeniors: true, SeniorAgeThreshold: 70},
	}
	shirt := &models.MerchandiseItem{
		ID:           demoShirtID,
		EventID:      event.ID,
		Name:         "Race T-shirt",
		Price:        money.FromCents(24999),
		CurrentStock: &stock,
		Variations: []models.Variation{
			{ID: "s", Name: "Size", Value: "S"},
			{ID: "m", Name: "Size", Value: "M"},
			{ID: "l", Name: "Size", Value: "L"},
		},
	}

	if err := w.SaveEvent(ctx, event); err != nil {
		return fmt.Errorf("seed event: %w", err)
	}
	for _, d := range distances {
		if err := w.SaveDistance(ctx, d); err != nil {
			return fmt.Errorf("seed distance %s: %w", d.Name, err)
		}
	}
	if err := w.SaveMerchandise(ctx, shirt); err != nil {
		return fmt.Errorf("seed merchandise: %w", err)
	}
	return nil
}
