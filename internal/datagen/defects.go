package datagen

import (
	"github.com/shopspring/decimal"

	"github.com/roach88/retailkit/internal/model"
)

// HeaderDefect and LineDefect name the corruption applied to a generated
// row. The generator records nothing about which rows it corrupted; the
// quality recipe has to find them on its own.
type (
	HeaderDefect int
	LineDefect   int
)

const (
	DefectMissingCustomer HeaderDefect = iota
	DefectUnknownStore
	DefectNegativeTotal
	DefectTotalMismatch
	DefectDateOutOfWindow
)

const (
	DefectMissingProduct LineDefect = iota
	DefectUnknownProduct
	DefectNegativeQuantity
	DefectNegativeAmount
)

const (
	headerDefectKinds = 5
	lineDefectKinds   = 4
)

// UnknownStoreID and UnknownProductID never collide with generated IDs.
const (
	UnknownStoreID   = "S999"
	UnknownProductID = "P9999"
)

func (g *Generator) corruptHeader(h *model.SalesHeader) {
	if g.rng.Float64() >= g.cfg.Generator.DefectRate {
		return
	}
	switch HeaderDefect(g.rng.IntN(headerDefectKinds)) {
	case DefectMissingCustomer:
		h.CustomerID = ""
	case DefectUnknownStore:
		h.StoreID = UnknownStoreID
	case DefectNegativeTotal:
		h.TotalAmount = h.TotalAmount.Neg()
	case DefectTotalMismatch:
		h.TotalAmount = h.TotalAmount.Add(decimal.NewFromInt(1))
	case DefectDateOutOfWindow:
		h.Date = h.Date.AddDate(0, 0, -(g.window.Days + 3))
	}
}

func (g *Generator) corruptLine(l *model.SalesLineItem) {
	if g.rng.Float64() >= g.cfg.Generator.DefectRate {
		return
	}
	switch LineDefect(g.rng.IntN(lineDefectKinds)) {
	case DefectMissingProduct:
		l.ProductID = ""
	case DefectUnknownProduct:
		l.ProductID = UnknownProductID
	case DefectNegativeQuantity:
		l.Quantity = -l.Quantity
	case DefectNegativeAmount:
		l.Amount = l.Amount.Neg()
	}
}
