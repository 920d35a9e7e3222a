package calendar

import (
	"context"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
)

// FeedService renders active mirror entries as an iCalendar feed for
// external calendar clients.
type FeedService struct {
	repo    Repository
	calName string
	prodID  string
}

func NewFeedService(repo Repository, calName string) *FeedService {
	return &FeedService{
		repo:    repo,
		calName: calName,
		prodID:  "-//casavista//appointment-engine//EN",
	}
}

func (s *FeedService) Feed(ctx context.Context, from, to time.Time) (string, error) {
	entries, err := s.repo.ListActive(ctx, from, to)
	if err != nil {
		return "", fmt.Errorf("list calendar entries: %w", err)
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(s.prodID)
	cal.SetName(s.calName)

	for _, e := range entries {
		ev := cal.AddEvent(e.AppointmentID.String())
		ev.SetDtStampTime(e.UpdatedAt)
		ev.SetCreatedTime(e.CreatedAt)
		ev.SetModifiedAt(e.UpdatedAt)
		ev.SetStartAt(e.StartTime)
		ev.SetEndAt(e.EndTime)
		ev.SetSummary(e.Title)
		if e.Location != nil {
			ev.SetLocation(*e.Location)
		}
		if e.Notes != nil {
			ev.SetDescription(*e.Notes)
		}
		ev.SetStatus(icsStatus(e.Status))
	}

	return cal.Serialize(), nil
}

func icsStatus(s EntryStatus) ics.ObjectStatus {
	switch s {
	case EntryConfirmed, EntryCompleted:
		return ics.ObjectStatusConfirmed
	case EntryCancelled, EntryNoShow:
		return ics.ObjectStatusCancelled
	default:
		return ics.ObjectStatusTentative
	}
}
