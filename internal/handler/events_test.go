package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/perks/perks/internal/handler/dto"
	"github.com/perks/perks/internal/model"
	"github.com/perks/perks/internal/service"
)

type stubEventService struct {
	EventService

	detail *service.EventDetail
	awards []*model.Transaction
	err    error

	gotList   service.ListEventsInput
	gotUpdate service.UpdateEventInput
	gotAward  service.AwardInput
}

func sampleEvent() *model.Event {
	capacity := 20
	return &model.Event{
		ID: 3, Name: "Hackathon", Location: "BA1130",
		StartTime: time.Date(2026, 11, 1, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 11, 1, 17, 0, 0, 0, time.UTC),
		Capacity:  &capacity, PointsRemain: 500, Published: true, NumGuests: 4,
	}
}

func (s *stubEventService) ListEvents(_ context.Context, _ *model.AuthContext, input service.ListEventsInput) (*service.ListResult[*model.Event], error) {
	s.gotList = input
	return &service.ListResult[*model.Event]{Count: 1, Results: []*model.Event{sampleEvent()}}, nil
}

func (s *stubEventService) GetEvent(_ context.Context, _ *model.AuthContext, _ int64) (*service.EventDetail, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.detail, nil
}

func (s *stubEventService) UpdateEvent(_ context.Context, _ *model.AuthContext, _ int64, input service.UpdateEventInput) (*model.Event, error) {
	s.gotUpdate = input
	if s.err != nil {
		return nil, s.err
	}
	return sampleEvent(), nil
}

func (s *stubEventService) JoinEvent(_ context.Context, caller *model.AuthContext, _ int64) (*service.GuestAdded, error) {
	if s.err != nil {
		return nil, s.err
	}
	e := sampleEvent()
	e.NumGuests++
	return &service.GuestAdded{Event: e, Guest: model.EventMember{ID: caller.UserID, UTORid: caller.UTORid}}, nil
}

func (s *stubEventService) AwardPoints(_ context.Context, _ *model.AuthContext, _ int64, input service.AwardInput) ([]*model.Transaction, error) {
	s.gotAward = input
	if s.err != nil {
		return nil, s.err
	}
	return s.awards, nil
}

func TestEventHandler_ListViews(t *testing.T) {
	svc := &stubEventService{}
	h := NewEventHandler(svc, testLogger())

	rec := serve(t, http.MethodGet, "/events", "/events?showFull=true&started=false&location=BA", h.List, regularCaller, nil)
	assertStatus(t, rec, http.StatusOK)

	if !svc.gotList.ShowFull || svc.gotList.Location != "BA" || svc.gotList.Started == nil || *svc.gotList.Started {
		t.Errorf("filters not passed: %+v", svc.gotList)
	}

	var public dto.ListResponse[map[string]any]
	decodeBody(t, rec, &public)
	if _, ok := public.Results[0]["pointsRemain"]; ok {
		t.Error("regular users must not see pointsRemain")
	}
	if public.Results[0]["numGuests"] != float64(4) {
		t.Errorf("numGuests = %v", public.Results[0]["numGuests"])
	}

	rec = serve(t, http.MethodGet, "/events", "/events", h.List, managerCaller, nil)
	assertStatus(t, rec, http.StatusOK)
	var full dto.ListResponse[dto.EventResponse]
	decodeBody(t, rec, &full)
	if full.Results[0].PointsRemain != 500 {
		t.Errorf("managers should see pointsRemain, got %+v", full.Results[0])
	}
}

func TestEventHandler_GetViews(t *testing.T) {
	organizers := []model.EventMember{{ID: 8, UTORid: "org00001", Name: "Org"}}

	svc := &stubEventService{detail: &service.EventDetail{Event: sampleEvent(), Organizers: organizers}}
	h := NewEventHandler(svc, testLogger())

	rec := serve(t, http.MethodGet, "/events/{eventId}", "/events/3", h.Get, regularCaller, nil)
	assertStatus(t, rec, http.StatusOK)
	var public map[string]any
	decodeBody(t, rec, &public)
	if _, ok := public["guests"]; ok {
		t.Error("public view must not list guests")
	}
	if orgs, ok := public["organizers"].([]any); !ok || len(orgs) != 1 {
		t.Errorf("organizers = %v", public["organizers"])
	}

	svc.detail.Guests = []model.EventMember{{ID: 1, UTORid: "regular1"}}
	rec = serve(t, http.MethodGet, "/events/{eventId}", "/events/3", h.Get, managerCaller, nil)
	assertStatus(t, rec, http.StatusOK)
	var full dto.EventResponse
	decodeBody(t, rec, &full)
	if len(full.Guests) != 1 || full.PointsRemain != 500 {
		t.Errorf("full view incomplete: %+v", full)
	}

	svc.err = service.ErrEventNotFound
	rec = serve(t, http.MethodGet, "/events/{eventId}", "/events/3", h.Get, regularCaller, nil)
	assertStatus(t, rec, http.StatusNotFound)
}

func TestEventHandler_UpdateCapacity(t *testing.T) {
	testCases := []struct {
		name    string
		body    string
		wantSet bool
		wantCap *int
	}{
		{"absent", `{"name":"Renamed"}`, false, nil},
		{"null clears limit", `{"capacity":null}`, true, nil},
		{"value", `{"capacity":50}`, true, ptr(50)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubEventService{}
			h := NewEventHandler(svc, testLogger())

			rec := serve(t, http.MethodPatch, "/events/{eventId}", "/events/3", h.Update, managerCaller, tc.body)
			assertStatus(t, rec, http.StatusOK)

			got := svc.gotUpdate
			if got.SetCapacity != tc.wantSet {
				t.Errorf("SetCapacity = %v, want %v", got.SetCapacity, tc.wantSet)
			}
			if (got.Capacity == nil) != (tc.wantCap == nil) || (got.Capacity != nil && *got.Capacity != *tc.wantCap) {
				t.Errorf("Capacity = %v, want %v", got.Capacity, tc.wantCap)
			}
		})
	}
}

func TestEventHandler_Join(t *testing.T) {
	svc := &stubEventService{}
	h := NewEventHandler(svc, testLogger())

	rec := serve(t, http.MethodPost, "/events/{eventId}/guests/me", "/events/3/guests/me", h.Join, regularCaller, nil)
	assertStatus(t, rec, http.StatusCreated)

	var resp dto.GuestAddedResponse
	decodeBody(t, rec, &resp)
	if resp.GuestAdded.UTORid != "regular1" || resp.NumGuests != 5 {
		t.Errorf("unexpected join response: %+v", resp)
	}

	for _, err := range []error{service.ErrEventFull, service.ErrEventEnded} {
		svc.err = err
		rec = serve(t, http.MethodPost, "/events/{eventId}/guests/me", "/events/3/guests/me", h.Join, regularCaller, nil)
		assertStatus(t, rec, http.StatusGone)
	}

	svc.err = service.ErrAlreadyGuest
	rec = serve(t, http.MethodPost, "/events/{eventId}/guests/me", "/events/3/guests/me", h.Join, regularCaller, nil)
	assertStatus(t, rec, http.StatusBadRequest)
}

func TestEventHandler_Award(t *testing.T) {
	award := func(utorid string) *model.Transaction {
		id := int64(3)
		return &model.Transaction{UTORid: utorid, Type: model.TransactionEvent, Amount: 10, RelatedID: &id, CreatedBy: "manager1"}
	}

	svc := &stubEventService{awards: []*model.Transaction{award("regular1")}}
	h := NewEventHandler(svc, testLogger())

	rec := serve(t, http.MethodPost, "/events/{eventId}/transactions", "/events/3/transactions", h.Award, managerCaller,
		`{"type":"event","utorid":"regular1","amount":10}`)
	assertStatus(t, rec, http.StatusCreated)
	var single dto.TransactionResponse
	decodeBody(t, rec, &single)
	if single.UTORid != "regular1" || svc.gotAward.UTORid != "regular1" {
		t.Errorf("single award response: %+v", single)
	}

	svc.awards = []*model.Transaction{award("regular1"), award("regular2")}
	rec = serve(t, http.MethodPost, "/events/{eventId}/transactions", "/events/3/transactions", h.Award, managerCaller,
		`{"type":"event","amount":10}`)
	assertStatus(t, rec, http.StatusCreated)
	var bulk []dto.TransactionResponse
	decodeBody(t, rec, &bulk)
	if len(bulk) != 2 || svc.gotAward.UTORid != "" {
		t.Errorf("bulk award response: %+v", bulk)
	}

	rec = serve(t, http.MethodPost, "/events/{eventId}/transactions", "/events/3/transactions", h.Award, managerCaller,
		`{"type":"purchase","amount":10}`)
	assertStatus(t, rec, http.StatusBadRequest)

	svc.err = service.ErrInsufficientEventPoints
	rec = serve(t, http.MethodPost, "/events/{eventId}/transactions", "/events/3/transactions", h.Award, managerCaller,
		`{"type":"event","amount":1000}`)
	assertStatus(t, rec, http.StatusBadRequest)
}
