package packing

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrNoContainers is returned when the container catalog is empty. With no
// containers there is no possible assignment, so the engine refuses to plan.
var ErrNoContainers = errors.New("container catalog is empty")

const (
	// bagOverheadL is the fixed volume allowance added per bag for packaging slack
	bagOverheadL = 0.2

	// defaultUnitWeightKg is assumed when the catalog carries no average unit weight
	defaultUnitWeightKg = 0.150

	// maxSplitAttempts bounds the recursive halving of oversized pieces
	maxSplitAttempts = 6
)

// ComputePlan turns order lines into a packing plan. It is pure and
// deterministic: the same inputs always produce the same plan. Data-quality
// problems (missing items, unplaceable pieces) become warnings, never errors.
func ComputePlan(
	lines []OrderLine,
	itemsByID map[string]Item,
	containerTypes []ContainerType,
	overridesByID map[string]*Override,
) (*Plan, error) {
	if len(containerTypes) == 0 {
		return nil, ErrNoContainers
	}

	// Containers ordered smallest to largest; the position in this order is
	// the container key's rank for minimum-key comparisons.
	containers := make([]ContainerType, len(containerTypes))
	copy(containers, containerTypes)
	sort.Slice(containers, func(i, j int) bool {
		li, lj := containers[i].EffectiveLiters(), containers[j].EffectiveLiters()
		if li != lj {
			return li < lj
		}
		return containers[i].Key < containers[j].Key
	})
	keyRank := make(map[string]int, len(containers))
	for i, c := range containers {
		keyRank[c.Key] = i
	}
	largest := containers[len(containers)-1]

	var warnings []string

	// Step 1+2: build pieces from lines
	var pieces []Piece
	for _, line := range lines {
		item, ok := itemsByID[line.ItemID]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("item %s not found in catalog, line skipped", line.ItemID))
			continue
		}
		profile := ResolveProfile(item, overridesByID[line.ItemID])
		pieces = append(pieces, buildPieces(line, item, profile)...)
	}

	// Step 3: halve pieces that cannot fit the largest container on their own
	pieces = autoSplit(pieces, largest, &warnings)

	// Step 4: sturdy pieces first, bulkier first among equals, item id as the
	// final tiebreak for determinism
	sort.SliceStable(pieces, func(i, j int) bool {
		ri, rj := pieces[i].Fragility.placementRank(), pieces[j].Fragility.placementRank()
		if ri != rj {
			return ri < rj
		}
		if pieces[i].EstLiters != pieces[j].EstLiters {
			return pieces[i].EstLiters > pieces[j].EstLiters
		}
		return pieces[i].ItemID < pieces[j].ItemID
	})

	// Step 5: first-fit placement
	var boxes []Box
	for _, piece := range pieces {
		placed := false
		for i := range boxes {
			if boxAccepts(&boxes[i], piece, keyRank) {
				addToBox(&boxes[i], piece)
				placed = true
				break
			}
		}
		if placed {
			continue
		}

		idx := smallestFeasible(containers, piece, keyRank)
		if idx < 0 {
			warnings = append(warnings, fmt.Sprintf(
				"no container can hold piece of item %s (%.2f kg, %.2f L), piece dropped",
				piece.ItemID, piece.EstWeightKg, piece.EstLiters))
			continue
		}

		c := containers[idx]
		box := Box{
			Number:       len(boxes) + 1,
			ContainerKey: c.Key,
			Vented:       c.Vented,
			UsableLiters: c.EffectiveLiters(),
			MaxWeightKg:  c.MaxWeightKg,
		}
		addToBox(&box, piece)
		boxes = append(boxes, box)
	}

	// Step 6: summarize
	for i := range boxes {
		if boxes[i].UsableLiters > 0 {
			boxes[i].FillPct = math.Round(boxes[i].FillLiters/boxes[i].UsableLiters*1000) / 10
		}
	}

	return &Plan{
		Boxes: boxes,
		Summary: Summary{
			BoxCount: len(boxes),
			Items:    rollupItems(boxes),
			Warnings: warnings,
		},
	}, nil
}

// buildPieces splits one order line into bags or bundles per the item profile
func buildPieces(line OrderLine, item Item, profile ItemProfile) []Piece {
	unitWeightKg := defaultUnitWeightKg
	if item.AvgUnitWeightG > 0 {
		unitWeightKg = item.AvgUnitWeightG / 1000
	}

	// Pre-bundled items sold by unit come in fixed-count bundles
	if profile.BundleSize > 0 && line.Units > 0 && line.QuantityKg <= 0 {
		return buildBundles(line, profile, unitWeightKg)
	}

	capKg := profile.Fragility.BagCapKg()

	if line.QuantityKg > 0 {
		return buildWeightBags(line, profile, capKg)
	}
	if line.Units > 0 {
		return buildUnitBags(line, profile, unitWeightKg, capKg)
	}
	return nil
}

func buildBundles(line OrderLine, profile ItemProfile, unitWeightKg float64) []Piece {
	count := (line.Units + profile.BundleSize - 1) / profile.BundleSize
	pieces := make([]Piece, 0, count)

	remaining := line.Units
	for i := 0; i < count; i++ {
		units := profile.BundleSize
		if remaining < units {
			units = remaining
		}
		remaining -= units

		weight := float64(units) * unitWeightKg
		liters := profile.BundleVolumeL
		if liters <= 0 {
			liters = weight/profile.DensityKgPerL + bagOverheadL
		}

		pieces = append(pieces, Piece{
			ItemID:          line.ItemID,
			Kind:            PieceBundle,
			Mode:            ModeUnit,
			Units:           units,
			EstLiters:       liters,
			EstWeightKg:     weight,
			Fragility:       profile.Fragility,
			MixAllowed:      profile.MixAllowed,
			NeedsVent:       profile.NeedsVent,
			MinContainerKey: profile.MinContainerKey,
			MaxKgPerBox:     profile.MaxKgPerBox,
		})
	}
	return pieces
}

func buildWeightBags(line OrderLine, profile ItemProfile, capKg float64) []Piece {
	var pieces []Piece
	remaining := line.QuantityKg
	for remaining > 1e-9 {
		weight := math.Min(remaining, capKg)
		remaining -= weight

		pieces = append(pieces, Piece{
			ItemID:          line.ItemID,
			Kind:            PieceBag,
			Mode:            ModeKg,
			QuantityKg:      weight,
			EstLiters:       weight/profile.DensityKgPerL + bagOverheadL,
			EstWeightKg:     weight,
			Fragility:       profile.Fragility,
			MixAllowed:      profile.MixAllowed,
			NeedsVent:       profile.NeedsVent,
			MinContainerKey: profile.MinContainerKey,
			MaxKgPerBox:     profile.MaxKgPerBox,
		})
	}
	return pieces
}

func buildUnitBags(line OrderLine, profile ItemProfile, unitWeightKg, capKg float64) []Piece {
	maxUnits := int(capKg / unitWeightKg)
	if maxUnits < 1 {
		maxUnits = 1
	}

	var pieces []Piece
	remaining := line.Units
	for remaining > 0 {
		units := maxUnits
		if remaining < units {
			units = remaining
		}
		remaining -= units

		weight := float64(units) * unitWeightKg
		liters := weight/profile.DensityKgPerL + bagOverheadL
		if profile.UnitVolumeL > 0 {
			liters = float64(units)*profile.UnitVolumeL + bagOverheadL
		}

		pieces = append(pieces, Piece{
			ItemID:          line.ItemID,
			Kind:            PieceBag,
			Mode:            ModeUnit,
			Units:           units,
			EstLiters:       liters,
			EstWeightKg:     weight,
			Fragility:       profile.Fragility,
			MixAllowed:      profile.MixAllowed,
			NeedsVent:       profile.NeedsVent,
			MinContainerKey: profile.MinContainerKey,
			MaxKgPerBox:     profile.MaxKgPerBox,
		})
	}
	return pieces
}

// autoSplit halves any piece too big for even the largest container until it
// fits or the retry bound is exhausted.
func autoSplit(pieces []Piece, largest ContainerType, warnings *[]string) []Piece {
	maxLiters := largest.EffectiveLiters()
	maxWeight := largest.MaxWeightKg

	fits := func(p Piece) bool {
		return p.EstWeightKg <= maxWeight && p.EstLiters <= maxLiters
	}

	var out []Piece
	for _, piece := range pieces {
		if fits(piece) {
			out = append(out, piece)
			continue
		}

		*warnings = append(*warnings, fmt.Sprintf(
			"piece of item %s (%.2f kg, %.2f L) exceeds largest container, auto-splitting",
			piece.ItemID, piece.EstWeightKg, piece.EstLiters))

		queue := []Piece{piece}
		for attempt := 0; attempt < maxSplitAttempts; attempt++ {
			var next []Piece
			allFit := true
			for _, p := range queue {
				if fits(p) {
					next = append(next, p)
					continue
				}
				allFit = false
				next = append(next, halvePiece(p)...)
			}
			queue = next
			if allFit {
				break
			}
		}
		out = append(out, queue...)
	}
	return out
}

// halvePiece splits a piece into two of roughly half the quantity each
func halvePiece(p Piece) []Piece {
	a, b := p, p

	if p.Mode == ModeKg {
		a.QuantityKg = p.QuantityKg / 2
		b.QuantityKg = p.QuantityKg - a.QuantityKg
	} else {
		a.Units = p.Units / 2
		b.Units = p.Units - a.Units
		if a.Units == 0 {
			return []Piece{p}
		}
	}

	halfWeight := p.EstWeightKg / 2
	halfLiters := p.EstLiters / 2
	a.EstWeightKg, b.EstWeightKg = halfWeight, p.EstWeightKg-halfWeight
	a.EstLiters, b.EstLiters = halfLiters, p.EstLiters-halfLiters

	return []Piece{a, b}
}

// boxAccepts checks every admission rule for placing piece into box
func boxAccepts(box *Box, piece Piece, keyRank map[string]int) bool {
	if piece.NeedsVent && !box.Vented {
		return false
	}
	if piece.MinContainerKey != "" {
		minRank, ok := keyRank[piece.MinContainerKey]
		if ok && keyRank[box.ContainerKey] < minRank {
			return false
		}
	}
	if box.WeightKg+piece.EstWeightKg > box.MaxWeightKg {
		return false
	}
	if box.FillLiters+piece.EstLiters > box.UsableLiters {
		return false
	}

	// Mixing: a no-mix piece only enters a box holding nothing but its own
	// item, and a no-mix resident excludes every other item.
	for _, resident := range box.Pieces {
		if resident.ItemID == piece.ItemID {
			continue
		}
		if !piece.MixAllowed || !resident.MixAllowed {
			return false
		}
	}

	// Per-item weight cap within one box
	if piece.MaxKgPerBox > 0 {
		itemWeight := piece.EstWeightKg
		for _, resident := range box.Pieces {
			if resident.ItemID == piece.ItemID {
				itemWeight += resident.EstWeightKg
			}
		}
		if itemWeight > piece.MaxKgPerBox {
			return false
		}
	}

	return true
}

func addToBox(box *Box, piece Piece) {
	box.Pieces = append(box.Pieces, piece)
	box.FillLiters += piece.EstLiters
	box.WeightKg += piece.EstWeightKg
}

// smallestFeasible returns the index of the smallest container that can hold
// the piece alone, or -1 when none can.
func smallestFeasible(containers []ContainerType, piece Piece, keyRank map[string]int) int {
	for i, c := range containers {
		if piece.NeedsVent && !c.Vented {
			continue
		}
		if piece.MinContainerKey != "" {
			minRank, ok := keyRank[piece.MinContainerKey]
			if ok && i < minRank {
				continue
			}
		}
		if piece.EstWeightKg > c.MaxWeightKg {
			continue
		}
		if piece.EstLiters > c.EffectiveLiters() {
			continue
		}
		return i
	}
	return -1
}

func rollupItems(boxes []Box) []ItemRollup {
	byItem := make(map[string]*ItemRollup)
	for _, box := range boxes {
		for _, piece := range box.Pieces {
			rollup, ok := byItem[piece.ItemID]
			if !ok {
				rollup = &ItemRollup{ItemID: piece.ItemID}
				byItem[piece.ItemID] = rollup
			}
			if piece.Kind == PieceBundle {
				rollup.Bundles++
			} else {
				rollup.Bags++
			}
			rollup.TotalKg += piece.EstWeightKg
			rollup.TotalUnits += piece.Units
			rollup.TotalLiters += piece.EstLiters
		}
	}

	items := make([]ItemRollup, 0, len(byItem))
	for _, rollup := range byItem {
		items = append(items, *rollup)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ItemID < items[j].ItemID })
	return items
}
