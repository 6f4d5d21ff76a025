package drafts

import (
	"fmt"

	"github.com/Tishkos/arbatis-pos/internal/inventory"
)

// ItemKey identifies a catalog item across both stocked tables.
func ItemKey(kind inventory.ItemKind, itemID int64) string {
	return fmt.Sprintf("%s:%d", kind, itemID)
}

// AvailableStock computes how many units the given line may still take:
// the stock snapshot recorded at selection time, plus any quantity the
// invoice being edited had already committed for the item, minus the
// quantities held by other lines of the same item in this draft.
func (d *Draft) AvailableStock(lineID string) float64 {
	line := d.Line(lineID)
	if line == nil || line.ItemID == nil {
		return 0
	}
	key := ItemKey(line.ItemKind, *line.ItemID)

	available := line.StockSnapshot + d.CommittedQty[key]
	for i := range d.Lines {
		other := &d.Lines[i]
		if other.ID == lineID || other.ItemID == nil {
			continue
		}
		if ItemKey(other.ItemKind, *other.ItemID) == key {
			available -= other.Qty
		}
	}
	if available < 0 {
		return 0
	}
	return available
}

// ClampQuantities caps every line at its available stock and returns the
// ids of lines that were clamped. The caller surfaces an alert for them.
func (d *Draft) ClampQuantities() []string {
	var clamped []string
	for i := range d.Lines {
		line := &d.Lines[i]
		if line.ItemID == nil {
			continue
		}
		available := d.AvailableStock(line.ID)
		if line.Qty > available {
			line.Qty = available
			line.Amount = LineAmount(line.Qty, line.Rate)
			clamped = append(clamped, line.ID)
		}
	}
	return clamped
}
