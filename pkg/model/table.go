package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexString accepts a JSON string, number or null. The backend is not consistent about
// whether ids and display numbers are strings or integers.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("flex string: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

// MarshalJSON emits integers as JSON numbers so ids round-trip in the form the backend used.
func (f FlexString) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(f), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(f) {
		return []byte(f), nil
	}
	return json.Marshal(string(f))
}

func (f FlexString) String() string { return string(f) }

type TableStatus string

const (
	TableAvailable     TableStatus = "available"
	TableOccupied      TableStatus = "occupied"
	TableCleaning      TableStatus = "cleaning"
	TableNeedsCleaning TableStatus = "needs_cleaning"
	TableReserved      TableStatus = "reserved"
	TableProblem       TableStatus = "problem"
)

type Table struct {
	ID             FlexString  `json:"id"`
	Name           string      `json:"name,omitempty"`
	Number         FlexString  `json:"number,omitempty"`
	Capacity       int         `json:"capacity"`
	Status         TableStatus `json:"status"`
	CurrentOrderID *FlexString `json:"current_order_id"`
}

// Label is the display name: the table name, else its number, else its id.
func (t Table) Label() string {
	switch {
	case t.Name != "":
		return t.Name
	case t.Number != "":
		return "Table " + t.Number.String()
	default:
		return "Table " + t.ID.String()
	}
}

func (t Table) IsOccupied() bool  { return t.Status == TableOccupied }
func (t Table) IsAvailable() bool { return t.Status == TableAvailable }

// OrderID returns the current order id, or "" when the table has none.
func (t Table) OrderID() FlexString {
	if t.CurrentOrderID == nil {
		return ""
	}
	return *t.CurrentOrderID
}

// Consistent reports whether the table holds an order exactly when it is occupied.
func (t Table) Consistent() bool {
	return t.IsOccupied() == (t.OrderID() != "")
}

// TableUpdate is a partial table update. CurrentOrderID is always serialised, so a nil
// pointer clears the order on the backend.
type TableUpdate struct {
	Status         *TableStatus `json:"status,omitempty"`
	CurrentOrderID *FlexString  `json:"current_order_id"`
}

// ReleaseTable is the update that frees a table.
func ReleaseTable() TableUpdate {
	s := TableAvailable
	return TableUpdate{Status: &s}
}

// FindTable returns the table with the given id.
func FindTable(tables []Table, id FlexString) (Table, bool) {
	for _, t := range tables {
		if t.ID == id {
			return t, true
		}
	}
	return Table{}, false
}
