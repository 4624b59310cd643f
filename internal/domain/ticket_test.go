package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func validCustomerTicket() Ticket {
	return Ticket{
		Source:     TicketSourceCustomer,
		Title:      "Printer on fire",
		Priority:   TicketPriorityMedium,
		Status:     TicketStatusOpen,
		Category:   DefaultCategory,
		CustomerID: strPtr("alice@example.com"),
	}
}

func TestTicketValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Ticket)
		wantKey string
	}{
		{"valid", func(t *Ticket) {}, ""},
		{"empty title", func(t *Ticket) { t.Title = "  " }, "title"},
		{"title too long", func(t *Ticket) { t.Title = strings.Repeat("x", MaxTitleLength+1) }, "title"},
		{"title at limit", func(t *Ticket) { t.Title = strings.Repeat("x", MaxTitleLength) }, ""},
		{"unknown source", func(t *Ticket) { t.Source = "smoke-signal" }, "source"},
		{"external without ref", func(t *Ticket) { t.Source = TicketSourceExternal; t.ExternalRef = nil }, "external_ref"},
		{"external with blank ref", func(t *Ticket) { t.Source = TicketSourceExternal; t.ExternalRef = strPtr("  ") }, "external_ref"},
		{"external with ref", func(t *Ticket) { t.Source = TicketSourceExternal; t.ExternalRef = strPtr("EXT-1") }, ""},
		{"unknown status", func(t *Ticket) { t.Status = "archived" }, "status"},
		{"unknown priority", func(t *Ticket) { t.Priority = "urgent" }, "priority"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ticket := validCustomerTicket()
			tc.mutate(&ticket)
			details := ticket.Validate()
			if tc.wantKey == "" {
				assert.Nil(t, details)
				return
			}
			assert.Contains(t, details, tc.wantKey)
		})
	}
}

func TestValidStatus(t *testing.T) {
	for _, status := range []TicketStatus{TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed} {
		assert.True(t, ValidStatus(status), string(status))
	}
	assert.False(t, ValidStatus("cancelled"))
	assert.False(t, ValidStatus(""))
}

func TestValidPriority(t *testing.T) {
	for _, priority := range []TicketPriority{TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh} {
		assert.True(t, ValidPriority(priority), string(priority))
	}
	assert.False(t, ValidPriority("urgent"))
	assert.False(t, ValidPriority(""))
}
