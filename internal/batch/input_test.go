package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseParcelList(t *testing.T) {
	inputs, err := ParseParcelList("103/2, 45 ,396/1", "SAVAR")
	require.NoError(t, err)
	require.Len(t, inputs, 3)
	assert.Equal(t, ParcelInput{ParcelNumber: "103/2", Municipality: "SAVAR"}, inputs[0])
	assert.Equal(t, ParcelInput{ParcelNumber: "45", Municipality: "SAVAR"}, inputs[1])
	assert.Equal(t, ParcelInput{ParcelNumber: "396/1", Municipality: "SAVAR"}, inputs[2])
}

func TestParseParcelListDirectIDs(t *testing.T) {
	// Municipality is not needed when every item is a parcel ID.
	inputs, err := ParseParcelList("12345678,87654321", "")
	require.NoError(t, err)
	require.Len(t, inputs, 2)
	assert.True(t, inputs[0].IsDirectID())
	assert.Equal(t, "12345678", inputs[0].ParcelID)
	assert.Equal(t, "87654321", inputs[1].ParcelID)
}

func TestParseParcelListRejectsMixedKinds(t *testing.T) {
	_, err := ParseParcelList("103/2,12345678", "SAVAR")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot mix")
}

func TestParseParcelListRequiresMunicipalityForNumbers(t *testing.T) {
	_, err := ParseParcelList("103/2,45", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "municipality required")
}

func TestParseParcelListEmpty(t *testing.T) {
	_, err := ParseParcelList(" , ,", "SAVAR")
	require.Error(t, err)
}

func TestParseParcelFileCSVInheritsMunicipality(t *testing.T) {
	path := writeTempFile(t, "parcels.csv", `parcel_number,municipality
103/2,334979
45,
396/1,335019
118/4,
`)

	inputs, err := ParseParcelFile(path)
	require.NoError(t, err)
	require.Len(t, inputs, 4)
	assert.Equal(t, "334979", inputs[0].Municipality)
	assert.Equal(t, "334979", inputs[1].Municipality) // inherited
	assert.Equal(t, "335019", inputs[2].Municipality)
	assert.Equal(t, "335019", inputs[3].Municipality) // inherited from the new value
}

func TestParseParcelFileCSVMunicipalityRequiredOnFirstRow(t *testing.T) {
	path := writeTempFile(t, "parcels.csv", "parcel_number,municipality\n103/2,\n")

	_, err := ParseParcelFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
}

func TestParseParcelFileCSVDirectIDs(t *testing.T) {
	path := writeTempFile(t, "parcels.csv", "parcel_id\n12345678\n87654321\n")

	inputs, err := ParseParcelFile(path)
	require.NoError(t, err)
	require.Len(t, inputs, 2)
	assert.True(t, inputs[0].IsDirectID())
	assert.Equal(t, "87654321", inputs[1].ParcelID)
}

func TestParseParcelFileCSVRejectsBothColumns(t *testing.T) {
	path := writeTempFile(t, "parcels.csv", "parcel_number,parcel_id\n103/2,12345678\n")

	_, err := ParseParcelFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both")
}

func TestParseParcelFileCSVRejectsUnknownColumns(t *testing.T) {
	path := writeTempFile(t, "parcels.csv", "number,town\n103/2,SAVAR\n")

	_, err := ParseParcelFile(path)
	require.Error(t, err)
}

func TestParseParcelFileJSON(t *testing.T) {
	path := writeTempFile(t, "parcels.json", `[
		{"parcel_number": "103/2", "municipality": "334979"},
		{"parcel_number": "45", "municipality": "SAVAR"}
	]`)

	inputs, err := ParseParcelFile(path)
	require.NoError(t, err)
	require.Len(t, inputs, 2)
	assert.Equal(t, ParcelInput{ParcelNumber: "45", Municipality: "SAVAR"}, inputs[1])
}

func TestParseParcelFileJSONRejectsMixedKinds(t *testing.T) {
	path := writeTempFile(t, "parcels.json", `[
		{"parcel_number": "103/2", "municipality": "334979"},
		{"parcel_id": "12345678"}
	]`)

	_, err := ParseParcelFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot mix")
}

func TestParseParcelFileUnsupportedExtension(t *testing.T) {
	path := writeTempFile(t, "parcels.txt", "103/2\n")

	_, err := ParseParcelFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported input format")
}

func TestParseParcelFileMissing(t *testing.T) {
	_, err := ParseParcelFile(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
}

func TestParseLRUnitFileCSV(t *testing.T) {
	path := writeTempFile(t, "units.csv", "lr_unit_number,main_book_id\n769,21277\n13998,30783\n")

	inputs, err := ParseLRUnitFile(path)
	require.NoError(t, err)
	require.Len(t, inputs, 2)
	assert.Equal(t, LRUnitInput{UnitNumber: "769", MainBookID: 21277}, inputs[0])
	assert.Equal(t, LRUnitInput{UnitNumber: "13998", MainBookID: 30783}, inputs[1])
}

func TestParseLRUnitFileCSVRejectsBadBookID(t *testing.T) {
	path := writeTempFile(t, "units.csv", "lr_unit_number,main_book_id\n769,book\n")

	_, err := ParseLRUnitFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "main_book_id must be an integer")
}

func TestParseLRUnitFileJSON(t *testing.T) {
	path := writeTempFile(t, "units.json", `[
		{"lr_unit_number": "769", "main_book_id": 21277}
	]`)

	inputs, err := ParseLRUnitFile(path)
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Equal(t, LRUnitInput{UnitNumber: "769", MainBookID: 21277}, inputs[0])
}

func TestParseLRUnitFileJSONRequiresBookID(t *testing.T) {
	path := writeTempFile(t, "units.json", `[{"lr_unit_number": "769"}]`)

	_, err := ParseLRUnitFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "main_book_id is required")
}

func TestParseBatchOutputExtractsUniqueUnits(t *testing.T) {
	path := writeTempFile(t, "results.json", `{
		"summary": {"total": 4, "successful": 3, "failed": 1},
		"results": [
			{"status": "success", "parcel_number": "118/4", "lr_unit_number": "769", "main_book_id": 21277},
			{"status": "success", "parcel_number": "120/1", "lr_unit_number": "769", "main_book_id": 21277},
			{"status": "success", "parcel_number": "1/1", "lr_unit_number": "13998", "main_book_id": 30783},
			{"status": "error", "parcel_number": "999", "error_kind": "parcel_not_found"}
		]
	}`)

	inputs, err := ParseBatchOutput(path)
	require.NoError(t, err)
	require.Len(t, inputs, 2)
	assert.Equal(t, LRUnitInput{UnitNumber: "769", MainBookID: 21277}, inputs[0])
	assert.Equal(t, LRUnitInput{UnitNumber: "13998", MainBookID: 30783}, inputs[1])
}

func TestParseBatchOutputNoUnits(t *testing.T) {
	path := writeTempFile(t, "results.json", `{"results": [{"status": "error"}]}`)

	_, err := ParseBatchOutput(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no land registry unit references")
}
