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

type stubPromotionService struct {
	PromotionService

	err error

	gotCreate service.CreatePromotionInput
	gotList   service.ListPromotionsInput
	gotUpdate service.UpdatePromotionInput
	deleted   int64
}

func (s *stubPromotionService) CreatePromotion(_ context.Context, input service.CreatePromotionInput) (*model.Promotion, error) {
	s.gotCreate = input
	if s.err != nil {
		return nil, s.err
	}
	return &model.Promotion{ID: 9, Name: input.Name, Type: input.Type, StartTime: input.StartTime, EndTime: input.EndTime, Rate: input.Rate}, nil
}

func (s *stubPromotionService) ListPromotions(_ context.Context, _ *model.AuthContext, input service.ListPromotionsInput) (*service.ListResult[*model.Promotion], error) {
	s.gotList = input
	return &service.ListResult[*model.Promotion]{Count: 0, Results: []*model.Promotion{}}, nil
}

func (s *stubPromotionService) UpdatePromotion(_ context.Context, id int64, input service.UpdatePromotionInput) (*model.Promotion, error) {
	s.gotUpdate = input
	if s.err != nil {
		return nil, s.err
	}
	return &model.Promotion{ID: id, Name: "Updated"}, nil
}

func (s *stubPromotionService) DeletePromotion(_ context.Context, id int64) error {
	s.deleted = id
	return s.err
}

func TestPromotionHandler_Create(t *testing.T) {
	svc := &stubPromotionService{}
	h := NewPromotionHandler(svc, testLogger())

	body := `{"name":"Double","description":"d","type":"automatic","startTime":"2026-11-01T00:00:00Z","endTime":"2026-12-01T00:00:00Z","rate":0.02}`
	rec := serve(t, http.MethodPost, "/promotions", "/promotions", h.Create, managerCaller, body)
	assertStatus(t, rec, http.StatusCreated)

	if svc.gotCreate.Type != model.PromotionAutomatic || svc.gotCreate.Rate == nil || *svc.gotCreate.Rate != 0.02 {
		t.Errorf("input not passed: %+v", svc.gotCreate)
	}
	if !svc.gotCreate.StartTime.Equal(time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("startTime = %v", svc.gotCreate.StartTime)
	}

	var resp dto.PromotionResponse
	decodeBody(t, rec, &resp)
	if resp.ID != 9 || resp.Name != "Double" {
		t.Errorf("unexpected response: %+v", resp)
	}

	rec = serve(t, http.MethodPost, "/promotions", "/promotions", h.Create, managerCaller, `{"name":"No times","type":"automatic"}`)
	assertStatus(t, rec, http.StatusBadRequest)

	svc.err = &service.ValidationError{Field: "type", Message: "unknown"}
	rec = serve(t, http.MethodPost, "/promotions", "/promotions", h.Create, managerCaller, body)
	assertStatus(t, rec, http.StatusBadRequest)
}

func TestPromotionHandler_ListFilters(t *testing.T) {
	testCases := []struct {
		query       string
		wantStarted *bool
		wantEnded   *bool
	}{
		{"started=true&ended=false", ptr(true), ptr(false)},
		{"started=false", ptr(false), nil},
		{"ended=true", nil, ptr(true)},
		{"", nil, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.query, func(t *testing.T) {
			svc := &stubPromotionService{}
			h := NewPromotionHandler(svc, testLogger())

			rec := serve(t, http.MethodGet, "/promotions", "/promotions?type=one-time&"+tc.query, h.List, managerCaller, nil)
			assertStatus(t, rec, http.StatusOK)

			if !boolPtrEqual(svc.gotList.Started, tc.wantStarted) || !boolPtrEqual(svc.gotList.Ended, tc.wantEnded) {
				t.Errorf("started=%v ended=%v", svc.gotList.Started, svc.gotList.Ended)
			}
			if svc.gotList.Type == nil || *svc.gotList.Type != model.PromotionOneTime {
				t.Errorf("type = %v", svc.gotList.Type)
			}

			var resp dto.ListResponse[dto.PromotionResponse]
			decodeBody(t, rec, &resp)
			if resp.Results == nil {
				t.Error("results must be an empty array, not null")
			}
		})
	}

	h := NewPromotionHandler(&stubPromotionService{}, testLogger())
	rec := serve(t, http.MethodGet, "/promotions", "/promotions?started=soon", h.List, managerCaller, nil)
	assertStatus(t, rec, http.StatusBadRequest)
}

func TestPromotionHandler_UpdateAndDelete(t *testing.T) {
	svc := &stubPromotionService{}
	h := NewPromotionHandler(svc, testLogger())

	rec := serve(t, http.MethodPatch, "/promotions/{promotionId}", "/promotions/4", h.Update, managerCaller, `{"endTime":"2027-01-01T00:00:00Z"}`)
	assertStatus(t, rec, http.StatusOK)
	if svc.gotUpdate.EndTime == nil || svc.gotUpdate.Name != nil || svc.gotUpdate.Type != nil {
		t.Errorf("only endTime should be set: %+v", svc.gotUpdate)
	}

	rec = serve(t, http.MethodDelete, "/promotions/{promotionId}", "/promotions/4", h.Delete, managerCaller, nil)
	assertStatus(t, rec, http.StatusNoContent)
	if svc.deleted != 4 {
		t.Errorf("deleted = %d, want 4", svc.deleted)
	}

	svc.err = service.ErrPromotionStarted
	rec = serve(t, http.MethodDelete, "/promotions/{promotionId}", "/promotions/4", h.Delete, managerCaller, nil)
	assertStatus(t, rec, http.StatusForbidden)
}

func ptr[T any](v T) *T {
	return &v
}

func boolPtrEqual(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
