package reftable

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-reftable/hdf5"
)

func TestTraverseOrCreateGroups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groups.h5")

	f, err := hdf5.Create(path)
	require.NoError(t, err)

	g, err := TraverseOrCreateGroups(f, "/dials/processing/group_0")
	require.NoError(t, err)
	assert.Equal(t, "/dials/processing/group_0", g.Path())

	// "/" and "" return the root itself
	root, err := TraverseOrCreateGroups(f, "/")
	require.NoError(t, err)
	assert.Equal(t, "/", root.Path())
	root, err = TraverseOrCreateGroups(f, "")
	require.NoError(t, err)
	assert.Equal(t, "/", root.Path())

	require.NoError(t, f.Close())

	// The whole chain must be resolvable after reopen
	rf, err := hdf5.Open(path)
	require.NoError(t, err)
	defer rf.Close()

	_, err = rf.OpenGroup("/dials/processing/group_0")
	require.NoError(t, err)
}

func TestWriteTypedCanonicalizesUnitDimension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canon.h5")

	f, err := hdf5.Create(path)
	require.NoError(t, err)
	g, err := TraverseOrCreateGroups(f, "/data")
	require.NoError(t, err)

	// [N,1] is stored as [N]; [N,3] is stored as-is
	require.NoError(t, WriteTyped(g, "single", []int64{1, 2, 3}, []uint64{3, 1}))
	require.NoError(t, WriteTyped(g, "triple", []float64{1, 2, 3, 4, 5, 6}, []uint64{2, 3}))
	require.NoError(t, f.Close())

	rf, err := hdf5.Open(path)
	require.NoError(t, err)
	defer rf.Close()

	single, shape, err := ReadTyped[int64](rf, "/data/single")
	require.NoError(t, err)
	assert.Equal(t, []uint64{3}, shape)
	assert.Equal(t, []int64{1, 2, 3}, single)

	triple, shape, err := ReadTyped[float64](rf, "/data/triple")
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3}, shape)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, triple)
}

func TestWriteTypedLengthContract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "len.h5")

	f, err := hdf5.Create(path)
	require.NoError(t, err)
	defer f.Close()

	err = WriteTyped(f.Root(), "bad", []float64{1, 2, 3}, []uint64{2, 3})
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestReadTypedSizeMismatchIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mismatch.h5")

	f, err := hdf5.Create(path)
	require.NoError(t, err)
	require.NoError(t, WriteTyped(f.Root(), "values", []float64{1, 2, 3}, []uint64{3}))
	require.NoError(t, f.Close())

	rf, err := hdf5.Open(path)
	require.NoError(t, err)
	defer rf.Close()

	// 8-byte storage read as a 4-byte type must be rejected, not truncated
	_, _, err = ReadTyped[int32](rf, "/values")
	require.ErrorIs(t, err, ErrTypeMismatch)
	_, _, err = ReadTyped[float32](rf, "/values")
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestDatasetDiscovery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "discover.h5")

	f, err := hdf5.Create(path)
	require.NoError(t, err)

	top, err := TraverseOrCreateGroups(f, "/top")
	require.NoError(t, err)
	require.NoError(t, WriteTyped(top, "d1", []int64{1}, []uint64{1}))

	nested, err := TraverseOrCreateGroups(f, "/top/sub")
	require.NoError(t, err)
	require.NoError(t, WriteTyped(nested, "d2", []int64{2}, []uint64{1}))
	require.NoError(t, f.Close())

	rf, err := hdf5.Open(path)
	require.NoError(t, err)
	defer rf.Close()

	// Non-recursive sees only immediate datasets
	flat, err := DatasetsInGroup(rf, "/top")
	require.NoError(t, err)
	assert.Equal(t, []string{"/top/d1"}, flat)

	// Recursive sees the whole subtree
	all, err := DatasetsInGroupRecursive(rf, "/top")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"/top/d1", "/top/sub/d2"}, all)
}

func TestDiscoveryMissingGroupIsEmptyNotError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.h5")

	f, err := hdf5.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	rf, err := hdf5.Open(path)
	require.NoError(t, err)
	defer rf.Close()

	flat, err := DatasetsInGroup(rf, "/no/such/group")
	require.NoError(t, err)
	assert.Empty(t, flat)

	all, err := DatasetsInGroupRecursive(rf, "/no/such/group")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestExperimentMetadataRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.h5")

	f, err := hdf5.Create(path)
	require.NoError(t, err)
	g, err := TraverseOrCreateGroups(f, "/meta")
	require.NoError(t, err)

	ids := []uint64{0, 1, 2}
	identifiers := []string{"aaa", "bbbb", "cc"}
	require.NoError(t, WriteExperimentMetadata(g, ids, identifiers))
	require.NoError(t, f.Close())

	rf, err := hdf5.Open(path)
	require.NoError(t, err)
	defer rf.Close()

	rg, err := rf.OpenGroup("/meta")
	require.NoError(t, err)

	gotIDs, gotIdentifiers, err := ReadExperimentMetadata(rg)
	require.NoError(t, err)
	assert.Equal(t, ids, gotIDs)
	assert.Equal(t, identifiers, gotIdentifiers)
}

func TestExperimentMetadataAbsentIsNotError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nometa.h5")

	f, err := hdf5.Create(path)
	require.NoError(t, err)
	_, err = TraverseOrCreateGroups(f, "/meta")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	rf, err := hdf5.Open(path)
	require.NoError(t, err)
	defer rf.Close()

	rg, err := rf.OpenGroup("/meta")
	require.NoError(t, err)

	ids, identifiers, err := ReadExperimentMetadata(rg)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Empty(t, identifiers)
}

func TestWriteExperimentMetadataRejectsEmptyLists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reject.h5")

	f, err := hdf5.Create(path)
	require.NoError(t, err)
	defer f.Close()

	err = WriteExperimentMetadata(f.Root(), nil, []string{"x"})
	require.ErrorIs(t, err, ErrEmptyMetadata)
	err = WriteExperimentMetadata(f.Root(), []uint64{1}, nil)
	require.ErrorIs(t, err, ErrEmptyMetadata)
}
