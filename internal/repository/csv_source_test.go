package repository

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const inventoryCSV = "\ufefffacility_id,item_name,stock_level,reorder_level,last_restock_date\n" +
	"F01,Measles vaccine,12,20,2024-01-15\n" +
	"F01,Surgical gloves,300,100,\n" +
	",Orphan row,1,1,2024-01-01\n" +
	"F02,ORS sachets,forty,25,sometime\n"

func TestReadInventoryCSV(t *testing.T) {
	records, err := ReadInventoryCSV(strings.NewReader(inventoryCSV), time.UTC)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "F01", records[0].FacilityID)
	assert.Equal(t, "Measles vaccine", records[0].ItemName)
	assert.Equal(t, 12.0, records[0].StockLevel)
	assert.Equal(t, "2024-01-15", records[0].RestockDateString())

	assert.Nil(t, records[1].LastRestockDate)

	assert.Equal(t, "F02", records[2].FacilityID)
	assert.Equal(t, 0.0, records[2].StockLevel)
	assert.Equal(t, 25.0, records[2].ReorderLevel)
	assert.Nil(t, records[2].LastRestockDate)
}

func TestReadInventoryCSVMissingColumn(t *testing.T) {
	_, err := ReadInventoryCSV(strings.NewReader("facility_id,item_name,stock_level\nF01,Gloves,1\n"), time.UTC)
	assert.ErrorContains(t, err, "reorder_level")
}

func TestReadFacilityFeaturesCSV(t *testing.T) {
	in := "facility_id,avg_daily_consumption,stockout_history\n" +
		"F01,4.5,2\n" +
		"F02,1.25,\n" +
		"F01,99,99\n"

	table, err := ReadFacilityFeaturesCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"avg_daily_consumption", "stockout_history"}, table.Columns)
	assert.Equal(t, 2, table.Len())

	f01, ok := table.Lookup("F01")
	require.True(t, ok)
	assert.Equal(t, 4.5, f01["avg_daily_consumption"])
	assert.Equal(t, 2.0, f01["stockout_history"])

	f02, ok := table.Lookup("F02")
	require.True(t, ok)
	assert.True(t, math.IsNaN(f02["stockout_history"]))

	_, ok = table.Lookup("F03")
	assert.False(t, ok)
}

func TestReadFacilityFeaturesCSVRequiresID(t *testing.T) {
	_, err := ReadFacilityFeaturesCSV(strings.NewReader("facility,avg\nF01,1\n"))
	assert.Error(t, err)
}

func TestCSVSourceFromDisk(t *testing.T) {
	dir := t.TempDir()
	inv := filepath.Join(dir, "inventory.csv")
	feat := filepath.Join(dir, "facility_features.csv")
	require.NoError(t, os.WriteFile(inv, []byte(inventoryCSV), 0o644))
	require.NoError(t, os.WriteFile(feat, []byte("facility_id,x\nF01,1\n"), 0o644))

	src := NewCSVSource(inv, feat)
	records, err := src.LoadInventory(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 3)

	table, err := src.LoadFacilityFeatures(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())

	_, err = NewCSVSource(filepath.Join(dir, "missing.csv"), feat).LoadInventory(context.Background())
	assert.Error(t, err)
}
