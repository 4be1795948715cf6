package attendance

import (
	"encoding/csv"
	"io"
	"time"
)

// WriteNoListCSV streams the NO list as a CSV attachment body.
func WriteNoListCSV(w io.Writer, entries []NoEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"student_id", "name", "roll_no", "hostel_id", "responded_at"}); err != nil {
		return err
	}
	for _, e := range entries {
		row := []string{e.StudentID, e.Name, deref(e.RollNo), deref(e.HostelID), e.RespondedAt.Format(time.RFC3339)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
