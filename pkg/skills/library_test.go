package skills

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchSkill = `// search_product searches for a product from the home page.
//
// Args:
//     searchBarID: id of the search bar element
//     productName: keywords of the product to search for
//
// Returns:
//     nothing
//
// Examples:
//     search_product("567", "switch card case")
func search_product(searchBarID string, productName string) {
	click(searchBarID)
	fill(searchBarID, productName)
	press("Enter")
}`

const ordersSkill = `// open_order_history navigates from the account page to order history.
//
// Examples:
//     open_order_history("227")
func open_order_history(accountID string) {
	click(accountID)
	click("1742")
}`

func TestParseSource(t *testing.T) {
	parsed, err := ParseSource(searchSkill, "110")
	require.NoError(t, err)
	require.Len(t, parsed, 1)

	s := parsed[0]
	assert.Equal(t, "search_product", s.Name)
	assert.Equal(t, []Param{{Name: "searchBarID", Type: "string"}, {Name: "productName", Type: "string"}}, s.Params)
	assert.Equal(t, "110", s.TaskID)
	assert.Contains(t, s.Description, "searches for a product")
	assert.True(t, s.HasExamples())
	assert.Equal(t, "search_product(searchBarID, productName)", s.Signature())
	// source keeps the doc comment
	assert.Contains(t, s.Source, "// search_product searches")
}

func TestParseSourceRejectsGarbage(t *testing.T) {
	_, err := ParseSource("not go at all {{{", "t")
	assert.Error(t, err)

	_, err = ParseSource(`x := 1`, "t")
	assert.Error(t, err)
}

func TestAppendEnforcesUniqueNames(t *testing.T) {
	lib := NewLibrary()

	names, err := lib.Append(searchSkill, "110")
	require.NoError(t, err)
	assert.Equal(t, []string{"search_product"}, names)

	_, err = lib.Append(searchSkill, "111")
	require.Error(t, err)
	assert.Equal(t, 1, lib.Len(), "failed append must not apply anything")

	// a blob with one fresh and one colliding name applies nothing
	_, err = lib.Append(ordersSkill+"\n\n"+searchSkill, "112")
	require.Error(t, err)
	assert.Equal(t, 1, lib.Len())
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	lib := NewLibrary()
	_, err := lib.Append(searchSkill, "110")
	require.NoError(t, err)
	lib.Commit()

	snap := lib.Snapshot()
	before := lib.Source()
	beforeVersion := lib.Version()

	_, err = lib.Append(ordersSkill, "111")
	require.NoError(t, err)
	require.Equal(t, 2, lib.Len())

	lib.Restore(snap)
	assert.Equal(t, before, lib.Source())
	assert.Equal(t, beforeVersion, lib.Version())
	assert.Equal(t, 1, lib.Len())

	// restored library accepts the previously staged name again
	_, err = lib.Append(ordersSkill, "111")
	assert.NoError(t, err)
}

func TestCommitAdvancesVersion(t *testing.T) {
	lib := NewLibrary()
	assert.Equal(t, uint64(0), lib.Version())
	assert.Equal(t, uint64(1), lib.Commit())
	assert.Equal(t, uint64(2), lib.Commit())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shopping.go")

	lib := NewLibrary()
	_, err := lib.Append(searchSkill, "110")
	require.NoError(t, err)
	_, err = lib.Append(ordersSkill, "111")
	require.NoError(t, err)
	require.NoError(t, lib.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())
	assert.Equal(t, lib.Source(), loaded.Source())
	_, ok := loaded.Names()["open_order_history"]
	assert.True(t, ok)
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	lib, err := Load(filepath.Join(t.TempDir(), "absent.go"))
	require.NoError(t, err)
	assert.Equal(t, 0, lib.Len())
}

func TestSaveOnlyGrowsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.go")

	lib := NewLibrary()
	_, err := lib.Append(searchSkill, "110")
	require.NoError(t, err)
	require.NoError(t, lib.Save(path))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = lib.Append(ordersSkill, "111")
	require.NoError(t, err)
	require.NoError(t, lib.Save(path))
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Greater(t, len(second), len(first))
	assert.Equal(t, string(first), string(second[:len(first)]))
}

func TestDescribeIncludesExamples(t *testing.T) {
	lib := NewLibrary()
	_, err := lib.Append(searchSkill, "110")
	require.NoError(t, err)

	doc := lib.Describe()
	assert.Contains(t, doc, "search_product(searchBarID, productName)")
	assert.Contains(t, doc, "Examples:")
}

func TestFunctionNames(t *testing.T) {
	assert.Equal(t, []string{"search_product"}, FunctionNames(searchSkill))
	assert.Nil(t, FunctionNames("###"))
}
