package factory

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/leave"
)

func TestParseLeaveType_Defaults(t *testing.T) {
	f := NewLeaveTypeFactory()
	lt, err := f.ParseLeaveType(`{"id":"casual","code":"casual","fiscal_year_id":"fy-2081","number_of_days":6}`)
	require.NoError(t, err)

	assert.Equal(t, leave.AnyGender, lt.Gender)
	assert.Equal(t, leave.AnyMarital, lt.MaritalStatus)
	assert.Equal(t, leave.AnyJobType, lt.JobType)
	assert.Equal(t, leave.LeaveTypeActive, lt.Status)
	assert.Equal(t, 0, lt.MaxPerDayLeave)
	assert.Equal(t, 0, lt.PreInformDays)
	assert.Equal(t, "6", lt.NumberOfDays.String())
}

func TestParseLeaveType_FractionalDays(t *testing.T) {
	lt, err := NewLeaveTypeFactory().ParseLeaveType(`{"id":"x","code":"x","fiscal_year_id":"fy","number_of_days":"7.5"}`)
	require.NoError(t, err)
	assert.Equal(t, "7.5", lt.NumberOfDays.String())
}

func TestParseLeaveType_Rejects(t *testing.T) {
	cases := map[string]string{
		"missing id":      `{"code":"x","fiscal_year_id":"fy","number_of_days":1}`,
		"missing code":    `{"id":"x","fiscal_year_id":"fy","number_of_days":1}`,
		"missing fy":      `{"id":"x","code":"x","number_of_days":1}`,
		"negative days":   `{"id":"x","code":"x","fiscal_year_id":"fy","number_of_days":-1}`,
		"negative notice": `{"id":"x","code":"x","fiscal_year_id":"fy","number_of_days":1,"pre_inform_days":-2}`,
		"bad gender":      `{"id":"x","code":"x","fiscal_year_id":"fy","number_of_days":1,"gender":"X"}`,
		"bad marital":     `{"id":"x","code":"x","fiscal_year_id":"fy","number_of_days":1,"marital_status":"W"}`,
		"bad status":      `{"id":"x","code":"x","fiscal_year_id":"fy","number_of_days":1,"status":"archived"}`,
	}
	for name, js := range cases {
		_, err := NewLeaveTypeFactory().ParseLeaveType(js)
		assert.True(t, errors.Is(err, ErrInvalidLeaveType), "%s: %v", name, err)
	}

	_, err := NewLeaveTypeFactory().ParseLeaveType(`{not json`)
	assert.Error(t, err)
}

func TestPresets_AllParse(t *testing.T) {
	f := NewLeaveTypeFactory()
	types, err := f.ParsePresets("fy-2081")
	require.NoError(t, err)
	require.Len(t, types, 4)

	byCode := map[string]leave.LeaveType{}
	for _, lt := range types {
		assert.Equal(t, "fy-2081", string(lt.FiscalYearID))
		byCode[lt.Code] = lt
	}

	roster, ok := byCode[leave.RosterCode]
	require.True(t, ok)
	assert.True(t, roster.IsRoster())
	assert.Equal(t, 1, roster.MaxPerDayLeave)

	maternity := byCode["maternity"]
	assert.Equal(t, "F", maternity.Gender)
	assert.Equal(t, 15, maternity.PreInformDays)

	annual := byCode["annual"]
	assert.Equal(t, "18", annual.NumberOfDays.String())
	assert.Equal(t, 7, annual.PreInformDays)
}

func TestToJSON_RoundTrip(t *testing.T) {
	f := NewLeaveTypeFactory()
	lt, err := f.ParseLeaveType(leave.MaternityLeaveJSON("mat", "fy", 98))
	require.NoError(t, err)
	lt.Branches = []string{"ktm", "pkr"}

	b, err := json.Marshal(f.ToJSON(*lt))
	require.NoError(t, err)
	back, err := f.ParseLeaveType(string(b))
	require.NoError(t, err)

	assert.Equal(t, lt.ID, back.ID)
	assert.Equal(t, lt.Branches, back.Branches)
	assert.True(t, lt.NumberOfDays.Equal(back.NumberOfDays))
	assert.Equal(t, lt.MaxPerDayLeave, back.MaxPerDayLeave)
}
