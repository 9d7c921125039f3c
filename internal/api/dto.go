package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/studyflow-scheduler/internal/domain"
)

// Seed DTOs

// SeedRequest — запрос на ручной seed.
type SeedRequest struct {
	SubjectID string     `json:"subjectId"`
	DueAt     *time.Time `json:"dueAt,omitempty"`
}

// SeedResponse — созданный item.
type SeedResponse struct {
	ID        uuid.UUID `json:"id"`
	SubjectID string    `json:"subjectId"`
	DueAt     time.Time `json:"dueAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// SeedFromDomain конвертирует domain.DueItem в SeedResponse.
func SeedFromDomain(item *domain.DueItem) SeedResponse {
	return SeedResponse{
		ID:        item.ID,
		SubjectID: item.SubjectID,
		DueAt:     item.DueAt,
		CreatedAt: item.CreatedAt,
	}
}

// Window DTOs

// WindowItem — элемент window-ответа: то, что нужно presentation-слою.
type WindowItem struct {
	SubjectID string    `json:"subjectId"`
	DueAt     time.Time `json:"dueAt"`
}

// WindowFromDomain конвертирует items в ответ, сохраняя порядок.
func WindowFromDomain(items []domain.DueItem) []WindowItem {
	result := make([]WindowItem, len(items))
	for i := range items {
		result[i] = WindowItem{
			SubjectID: items[i].SubjectID,
			DueAt:     items[i].DueAt,
		}
	}
	return result
}

// History DTOs

// HistoryItem — архивная запись повторения.
type HistoryItem struct {
	ID        uuid.UUID `json:"id"`
	SubjectID string    `json:"subjectId"`
	DueAt     time.Time `json:"dueAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// HistoryFromDomain конвертирует архивные items в ответ.
func HistoryFromDomain(items []domain.DueItem) []HistoryItem {
	result := make([]HistoryItem, len(items))
	for i := range items {
		result[i] = HistoryItem{
			ID:        items[i].ID,
			SubjectID: items[i].SubjectID,
			DueAt:     items[i].DueAt,
			CreatedAt: items[i].CreatedAt,
		}
	}
	return result
}

// Status DTO

// StatusResponse — состояние сервиса для health-check.
type StatusResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Status  string `json:"status"`

	// Storage — активный бэкенд store: "redis" или "memory".
	// "memory" означает degraded-режим: содержимое volatile.
	Storage string `json:"storage"`

	// Messaging — "connected" или "disabled".
	Messaging string `json:"messaging"`

	Uptime string `json:"uptime"`
}
