package transfer

import "go-pos/pkg/model"

// State is one step of the transfer workflow. The concrete types are SelectSource,
// SelectDestination and ConfirmMerge.
type State interface {
	Name() string
}

// SelectSource lists the occupied tables an order can be moved away from.
type SelectSource struct {
	Candidates []model.Table `json:"candidates"`
}

// SelectDestination holds the chosen source and every other table it can go to: available
// ones are move targets, occupied ones merge targets.
type SelectDestination struct {
	Source    model.Table   `json:"source"`
	Available []model.Table `json:"available"`
	Occupied  []model.Table `json:"occupied"`
}

// ConfirmMerge waits for the user to accept a merge. Orders and Preview are nil when the
// orders could not be loaded; the merge is then confirmed without a comparison.
type ConfirmMerge struct {
	Source           model.Table   `json:"source"`
	Destination      model.Table   `json:"destination"`
	SourceOrder      *model.Order  `json:"source_order,omitempty"`
	DestinationOrder *model.Order  `json:"destination_order,omitempty"`
	Preview          *MergePreview `json:"preview,omitempty"`
}

func (SelectSource) Name() string      { return "select-source" }
func (SelectDestination) Name() string { return "select-destination" }
func (ConfirmMerge) Name() string      { return "confirm-merge" }

// Degraded reports whether the confirmation lacks the itemised comparison.
func (c ConfirmMerge) Degraded() bool { return c.Preview == nil }

func occupiedTables(tables []model.Table) []model.Table {
	var out []model.Table
	for _, t := range tables {
		if t.IsOccupied() {
			out = append(out, t)
		}
	}
	return out
}

// destinations partitions every table except source. Tables that are neither available nor
// occupied (cleaning, reserved, ...) are not offered.
func destinations(source model.Table, tables []model.Table) SelectDestination {
	st := SelectDestination{Source: source}
	for _, t := range tables {
		if t.ID == source.ID {
			continue
		}
		switch {
		case t.IsAvailable():
			st.Available = append(st.Available, t)
		case t.IsOccupied():
			st.Occupied = append(st.Occupied, t)
		}
	}
	return st
}
