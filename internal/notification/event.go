package notification

import (
	"fmt"
	"strings"
)

// LotRef carries the lot fields every outbound message mentions. Keeping a
// small value copy here avoids a dependency on the lot domain package.
type LotRef struct {
	ID         string
	Grade      string
	MeltNumber string
	Supplier   string
	OrderNo    string
}

func (r LotRef) label() string {
	parts := []string{r.Grade}
	if r.MeltNumber != "" {
		parts = append(parts, "melt "+r.MeltNumber)
	}
	if r.Supplier != "" {
		parts = append(parts, r.Supplier)
	}
	if r.OrderNo != "" {
		parts = append(parts, "order "+r.OrderNo)
	}
	return strings.Join(parts, ", ")
}

// Event is a committed workflow fact worth telling people about.
type Event interface {
	Render() string
}

type QCApproved struct {
	Lot LotRef
}

func (e QCApproved) Render() string {
	return fmt.Sprintf("✅ QC passed: %s (lot %s)", e.Lot.label(), e.Lot.ID)
}

type QCRejected struct {
	Lot     LotRef
	Reasons []string
}

func (e QCRejected) Render() string {
	msg := fmt.Sprintf("❌ QC rejected: %s (lot %s)", e.Lot.label(), e.Lot.ID)
	if len(e.Reasons) > 0 {
		msg += "\nReasons: " + strings.Join(e.Reasons, "; ")
	}
	return msg
}

type LabTestFailed struct {
	Lot           LotRef
	Discrepancies []string
}

func (e LabTestFailed) Render() string {
	msg := fmt.Sprintf("🔬 Lab test failed: %s (lot %s)", e.Lot.label(), e.Lot.ID)
	if len(e.Discrepancies) > 0 {
		msg += "\nDiscrepancies: " + strings.Join(e.Discrepancies, "; ")
	}
	return msg
}

type FinalAcceptance struct {
	Lot LotRef
}

func (e FinalAcceptance) Render() string {
	return fmt.Sprintf("📦 Accepted for use: %s (lot %s)", e.Lot.label(), e.Lot.ID)
}

type StatusChanged struct {
	Lot   LotRef
	From  string
	To    string
	Actor string
}

func (e StatusChanged) Render() string {
	msg := fmt.Sprintf("Status change %s → %s: %s (lot %s)", e.From, e.To, e.Lot.label(), e.Lot.ID)
	if e.Actor != "" {
		msg += "\nBy: " + e.Actor
	}
	return msg
}
