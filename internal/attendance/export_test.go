package attendance

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteNoListCSV(t *testing.T) {
	roll := "B21CS042"
	hostel := "H5"
	entries := []NoEntry{
		{StudentID: "s1", Name: "Asha", RollNo: &roll, HostelID: &hostel, RespondedAt: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)},
		{StudentID: "s2", Name: `Ravi "RJ"`, RespondedAt: time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)},
	}

	var sb strings.Builder
	require.NoError(t, WriteNoListCSV(&sb, entries))

	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "student_id,name,roll_no,hostel_id,responded_at", lines[0])
	assert.Contains(t, lines[1], "B21CS042")
	assert.Contains(t, lines[2], `"Ravi ""RJ"""`, "quotes must be escaped")
	assert.Contains(t, lines[2], ",,", "nil roll and hostel stay empty")
}

func TestWriteNoListCSVEmpty(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, WriteNoListCSV(&sb, nil))
	assert.Equal(t, "student_id,name,roll_no,hostel_id,responded_at\n", sb.String())
}
