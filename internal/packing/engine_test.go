package packing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func standardContainers() []ContainerType {
	return []ContainerType{
		{Key: "small", UsableLiters: 10, MaxWeightKg: 5, Vented: true},
		{Key: "medium", UsableLiters: 20, MaxWeightKg: 10, Vented: true},
		{Key: "large", UsableLiters: 40, MaxWeightKg: 20, Vented: true},
	}
}

func TestComputePlan_EmptyCatalogFails(t *testing.T) {
	_, err := ComputePlan(
		[]OrderLine{{ItemID: "c1", QuantityKg: 1}},
		map[string]Item{"c1": {ID: "c1", Type: "Carrot"}},
		nil,
		nil,
	)

	assert.ErrorIs(t, err, ErrNoContainers)
}

func TestComputePlan_MissingItemWarnsAndSkips(t *testing.T) {
	plan, err := ComputePlan(
		[]OrderLine{{ItemID: "ghost", QuantityKg: 2}},
		map[string]Item{},
		standardContainers(),
		nil,
	)

	require.NoError(t, err)
	assert.Empty(t, plan.Boxes)
	require.Len(t, plan.Summary.Warnings, 1)
	assert.Contains(t, plan.Summary.Warnings[0], "ghost")
}

func TestComputePlan_VeryFragileBagSplit(t *testing.T) {
	// 5 kg of a very fragile item with a 0.7 kg cap splits into 8 bags
	plan, err := ComputePlan(
		[]OrderLine{{ItemID: "straw-1", QuantityKg: 5}},
		map[string]Item{"straw-1": {ID: "straw-1", Type: "Strawberry"}},
		standardContainers(),
		nil,
	)

	require.NoError(t, err)

	bags := 0
	for _, box := range plan.Boxes {
		for _, piece := range box.Pieces {
			assert.LessOrEqual(t, piece.EstWeightKg, 0.7+1e-9)
			bags++
		}
	}
	assert.Equal(t, 8, bags)
}

func TestComputePlan_CarrotScenario(t *testing.T) {
	// 9 kg of carrots (roots: sturdy, 3.0 kg cap, 0.80 kg/L) makes three
	// 3 kg bags that all fit one medium box.
	plan, err := ComputePlan(
		[]OrderLine{{ItemID: "carrot-1", QuantityKg: 9}},
		map[string]Item{"carrot-1": {ID: "carrot-1", Type: "Carrot"}},
		[]ContainerType{{Key: "medium", UsableLiters: 20, MaxWeightKg: 10, Vented: false}},
		nil,
	)

	require.NoError(t, err)
	require.Len(t, plan.Boxes, 1)

	box := plan.Boxes[0]
	require.Len(t, box.Pieces, 3)
	for _, piece := range box.Pieces {
		assert.InDelta(t, 3.0, piece.EstWeightKg, 1e-9)
	}
	assert.InDelta(t, 9.0, box.WeightKg, 1e-9)
	assert.Empty(t, plan.Summary.Warnings)
}

func TestComputePlan_BoxLimitsRespected(t *testing.T) {
	plan, err := ComputePlan(
		[]OrderLine{
			{ItemID: "carrot-1", QuantityKg: 12},
			{ItemID: "tomato-1", QuantityKg: 4},
			{ItemID: "lettuce-1", QuantityKg: 1.5},
		},
		map[string]Item{
			"carrot-1":  {ID: "carrot-1", Type: "Carrot"},
			"tomato-1":  {ID: "tomato-1", Type: "Tomato"},
			"lettuce-1": {ID: "lettuce-1", Type: "Lettuce"},
		},
		standardContainers(),
		nil,
	)

	require.NoError(t, err)
	require.NotEmpty(t, plan.Boxes)

	for _, box := range plan.Boxes {
		assert.LessOrEqual(t, box.WeightKg, box.MaxWeightKg+1e-9, "box %d over weight", box.Number)
		assert.LessOrEqual(t, box.FillLiters, box.UsableLiters+1e-9, "box %d over volume", box.Number)
	}
}

func TestComputePlan_VentRequiredNoVentedContainer(t *testing.T) {
	plan, err := ComputePlan(
		[]OrderLine{{ItemID: "lettuce-1", QuantityKg: 0.5}},
		map[string]Item{"lettuce-1": {ID: "lettuce-1", Type: "Lettuce"}},
		[]ContainerType{{Key: "sealed", UsableLiters: 30, MaxWeightKg: 15, Vented: false}},
		nil,
	)

	require.NoError(t, err)
	assert.Empty(t, plan.Boxes, "vent-requiring piece must not land in a sealed box")
	require.NotEmpty(t, plan.Summary.Warnings)
	assert.Contains(t, plan.Summary.Warnings[0], "lettuce-1")
}

func TestComputePlan_NoMixIsolation(t *testing.T) {
	// Basil (herbs) disallows mixing: it must never share a box with another item
	plan, err := ComputePlan(
		[]OrderLine{
			{ItemID: "basil-1", QuantityKg: 0.3},
			{ItemID: "tomato-1", QuantityKg: 1},
		},
		map[string]Item{
			"basil-1":  {ID: "basil-1", Type: "Basil"},
			"tomato-1": {ID: "tomato-1", Type: "Tomato"},
		},
		standardContainers(),
		nil,
	)

	require.NoError(t, err)
	for _, box := range plan.Boxes {
		hasBasil := false
		distinct := map[string]bool{}
		for _, piece := range box.Pieces {
			distinct[piece.ItemID] = true
			if piece.ItemID == "basil-1" {
				hasBasil = true
			}
		}
		if hasBasil {
			assert.Len(t, distinct, 1, "no-mix item sharing box %d", box.Number)
		}
	}
}

func TestComputePlan_SturdyPlacedBeforeFragile(t *testing.T) {
	plan, err := ComputePlan(
		[]OrderLine{
			{ItemID: "lettuce-1", QuantityKg: 0.5},
			{ItemID: "carrot-1", QuantityKg: 2},
		},
		map[string]Item{
			"lettuce-1": {ID: "lettuce-1", Type: "Lettuce"},
			"carrot-1":  {ID: "carrot-1", Type: "Carrot"},
		},
		standardContainers(),
		nil,
	)

	require.NoError(t, err)
	require.Len(t, plan.Boxes, 1)

	pieces := plan.Boxes[0].Pieces
	require.Len(t, pieces, 2)
	assert.Equal(t, "carrot-1", pieces[0].ItemID, "sturdy piece goes in first")
	assert.Equal(t, "lettuce-1", pieces[1].ItemID)
}

func TestComputePlan_AutoSplitOversizedPiece(t *testing.T) {
	// A max-kg-per-box override cannot make a single bag oversized, but a
	// heavy sturdy bag can exceed a tiny catalog: 3 kg bag vs 2 kg max box.
	plan, err := ComputePlan(
		[]OrderLine{{ItemID: "carrot-1", QuantityKg: 3}},
		map[string]Item{"carrot-1": {ID: "carrot-1", Type: "Carrot"}},
		[]ContainerType{{Key: "tiny", UsableLiters: 8, MaxWeightKg: 2, Vented: false}},
		nil,
	)

	require.NoError(t, err)
	require.NotEmpty(t, plan.Summary.Warnings)
	assert.Contains(t, plan.Summary.Warnings[0], "auto-splitting")

	total := 0.0
	for _, box := range plan.Boxes {
		for _, piece := range box.Pieces {
			assert.LessOrEqual(t, piece.EstWeightKg, 2.0+1e-9)
			total += piece.EstWeightKg
		}
	}
	assert.InDelta(t, 3.0, total, 1e-9, "no weight lost to splitting")
}

func TestComputePlan_UnitModeLines(t *testing.T) {
	plan, err := ComputePlan(
		[]OrderLine{{ItemID: "apple-1", Units: 20}},
		map[string]Item{"apple-1": {ID: "apple-1", Type: "Apple", AvgUnitWeightG: 180}},
		standardContainers(),
		nil,
	)

	require.NoError(t, err)
	require.NotEmpty(t, plan.Boxes)

	totalUnits := 0
	for _, box := range plan.Boxes {
		for _, piece := range box.Pieces {
			// apples are fragile: 1.5 kg cap / 0.18 kg = 8 units max per bag
			assert.LessOrEqual(t, piece.Units, 8)
			totalUnits += piece.Units
		}
	}
	assert.Equal(t, 20, totalUnits)
}

func TestComputePlan_EggBundles(t *testing.T) {
	plan, err := ComputePlan(
		[]OrderLine{{ItemID: "eggs-1", Units: 30}},
		map[string]Item{"eggs-1": {ID: "eggs-1", Type: "Eggs", AvgUnitWeightG: 60}},
		standardContainers(),
		nil,
	)

	require.NoError(t, err)

	bundles := 0
	totalUnits := 0
	for _, box := range plan.Boxes {
		for _, piece := range box.Pieces {
			assert.Equal(t, PieceBundle, piece.Kind)
			assert.LessOrEqual(t, piece.Units, 12)
			bundles++
			totalUnits += piece.Units
		}
	}
	// ceil(30/12) = 3 cartons
	assert.Equal(t, 3, bundles)
	assert.Equal(t, 30, totalUnits)
}

func TestComputePlan_MinContainerKeyOverride(t *testing.T) {
	minKey := "large"

	plan, err := ComputePlan(
		[]OrderLine{{ItemID: "melon-1", QuantityKg: 2}},
		map[string]Item{"melon-1": {ID: "melon-1", Type: "Melon"}},
		standardContainers(),
		map[string]*Override{"melon-1": {ItemID: "melon-1", MinContainerKey: &minKey}},
	)

	require.NoError(t, err)
	require.NotEmpty(t, plan.Boxes)
	for _, box := range plan.Boxes {
		assert.Equal(t, "large", box.ContainerKey)
	}
}

func TestComputePlan_MaxKgPerBoxOverride(t *testing.T) {
	maxKg := 3.0

	plan, err := ComputePlan(
		[]OrderLine{{ItemID: "carrot-1", QuantityKg: 6}},
		map[string]Item{"carrot-1": {ID: "carrot-1", Type: "Carrot"}},
		standardContainers(),
		map[string]*Override{"carrot-1": {ItemID: "carrot-1", MaxKgPerBox: &maxKg}},
	)

	require.NoError(t, err)
	require.True(t, len(plan.Boxes) >= 2, "per-box cap forces a second box")
	for _, box := range plan.Boxes {
		assert.LessOrEqual(t, box.WeightKg, 3.0+1e-9)
	}
}

func TestComputePlan_Deterministic(t *testing.T) {
	lines := []OrderLine{
		{ItemID: "carrot-1", QuantityKg: 7},
		{ItemID: "tomato-1", QuantityKg: 3},
		{ItemID: "lettuce-1", QuantityKg: 1},
		{ItemID: "apple-1", Units: 14},
	}
	items := map[string]Item{
		"carrot-1":  {ID: "carrot-1", Type: "Carrot"},
		"tomato-1":  {ID: "tomato-1", Type: "Tomato"},
		"lettuce-1": {ID: "lettuce-1", Type: "Lettuce"},
		"apple-1":   {ID: "apple-1", Type: "Apple", AvgUnitWeightG: 150},
	}

	first, err := ComputePlan(lines, items, standardContainers(), nil)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := ComputePlan(lines, items, standardContainers(), nil)
		require.NoError(t, err)

		a, _ := json.Marshal(first)
		b, _ := json.Marshal(again)
		assert.Equal(t, string(a), string(b))
	}
}

func TestComputePlan_Summary(t *testing.T) {
	plan, err := ComputePlan(
		[]OrderLine{
			{ItemID: "carrot-1", QuantityKg: 6},
			{ItemID: "eggs-1", Units: 12},
		},
		map[string]Item{
			"carrot-1": {ID: "carrot-1", Type: "Carrot"},
			"eggs-1":   {ID: "eggs-1", Type: "Eggs", AvgUnitWeightG: 60},
		},
		standardContainers(),
		nil,
	)

	require.NoError(t, err)
	assert.Equal(t, len(plan.Boxes), plan.Summary.BoxCount)
	require.Len(t, plan.Summary.Items, 2)

	// Roll-ups sorted by item id
	assert.Equal(t, "carrot-1", plan.Summary.Items[0].ItemID)
	assert.Equal(t, 2, plan.Summary.Items[0].Bags)
	assert.InDelta(t, 6.0, plan.Summary.Items[0].TotalKg, 1e-9)

	assert.Equal(t, "eggs-1", plan.Summary.Items[1].ItemID)
	assert.Equal(t, 1, plan.Summary.Items[1].Bundles)
	assert.Equal(t, 12, plan.Summary.Items[1].TotalUnits)
}
