package packing

import "strings"

// Bucket is a produce classification with packing defaults
type Bucket string

const (
	BucketLeafy     Bucket = "leafy"
	BucketHerbs     Bucket = "herbs"
	BucketTomatoes  Bucket = "tomatoes"
	BucketBerries   Bucket = "berries"
	BucketMushrooms Bucket = "mushrooms"
	BucketCucurbits Bucket = "cucurbits"
	BucketRoots     Bucket = "roots"
	BucketAlliums   Bucket = "alliums"
	BucketFruit     Bucket = "fruit"
	BucketEggs      Bucket = "eggs"
	BucketGeneric   Bucket = "generic"
)

// bucketProfile holds the packing defaults one bucket implies
type bucketProfile struct {
	DensityKgPerL float64
	Fragility     Fragility
	NeedsVent     bool
	MixAllowed    bool
	BundleSize    int     // >0 marks a pre-bundled item
	BundleVolumeL float64 // fixed volume per bundle, 0 means estimate from weight
}

var bucketProfiles = map[Bucket]bucketProfile{
	BucketLeafy:     {DensityKgPerL: 0.25, Fragility: VeryFragile, NeedsVent: true, MixAllowed: true},
	BucketHerbs:     {DensityKgPerL: 0.15, Fragility: VeryFragile, NeedsVent: true, MixAllowed: false},
	BucketTomatoes:  {DensityKgPerL: 0.55, Fragility: Fragile, NeedsVent: true, MixAllowed: true},
	BucketBerries:   {DensityKgPerL: 0.40, Fragility: VeryFragile, NeedsVent: true, MixAllowed: false},
	BucketMushrooms: {DensityKgPerL: 0.35, Fragility: VeryFragile, NeedsVent: true, MixAllowed: false},
	BucketCucurbits: {DensityKgPerL: 0.60, Fragility: Normal, NeedsVent: false, MixAllowed: true},
	BucketRoots:     {DensityKgPerL: 0.80, Fragility: Sturdy, NeedsVent: false, MixAllowed: true},
	BucketAlliums:   {DensityKgPerL: 0.50, Fragility: Normal, NeedsVent: true, MixAllowed: false},
	BucketFruit:     {DensityKgPerL: 0.55, Fragility: Fragile, NeedsVent: true, MixAllowed: true},
	BucketEggs:      {DensityKgPerL: 0.45, Fragility: VeryFragile, NeedsVent: false, MixAllowed: true, BundleSize: 12, BundleVolumeL: 2.2},
	BucketGeneric:   {DensityKgPerL: 0.50, Fragility: Normal, NeedsVent: false, MixAllowed: true},
}

// bucketKeywords maps match tokens to buckets. Order matters: the first
// bucket whose keyword appears in the item's hints wins.
var bucketKeywords = []struct {
	Bucket   Bucket
	Keywords []string
}{
	{BucketEggs, []string{"egg"}},
	{BucketLeafy, []string{"lettuce", "spinach", "chard", "kale", "arugula", "cabbage"}},
	{BucketHerbs, []string{"basil", "parsley", "cilantro", "mint", "dill", "herb"}},
	{BucketTomatoes, []string{"tomato"}},
	{BucketBerries, []string{"berry", "berries", "strawberr", "blueberr", "raspberr", "grape"}},
	{BucketMushrooms, []string{"mushroom", "fungi"}},
	{BucketCucurbits, []string{"cucumber", "zucchini", "squash", "pumpkin", "melon", "watermelon"}},
	{BucketRoots, []string{"carrot", "potato", "beet", "radish", "turnip", "ginger", "sweet potato"}},
	{BucketAlliums, []string{"onion", "garlic", "leek", "shallot", "scallion"}},
	{BucketFruit, []string{"apple", "pear", "peach", "plum", "orange", "lemon", "banana", "mango", "fruit", "citrus"}},
}

// ClassifyItem maps an item's catalog hints to a produce bucket
func ClassifyItem(item Item) Bucket {
	hints := strings.ToLower(item.Type + " " + item.Variety + " " + item.Category)
	for _, entry := range bucketKeywords {
		for _, kw := range entry.Keywords {
			if strings.Contains(hints, kw) {
				return entry.Bucket
			}
		}
	}
	return BucketGeneric
}

// ItemProfile is the resolved packing behavior for one item: bucket defaults
// overlaid by any override fields present.
type ItemProfile struct {
	Bucket          Bucket
	DensityKgPerL   float64
	Fragility       Fragility
	NeedsVent       bool
	MixAllowed      bool
	MinContainerKey string
	MaxKgPerBox     float64
	UnitVolumeL     float64
	BundleSize      int
	BundleVolumeL   float64
}

// ResolveProfile classifies an item and overlays its override, if any. Each
// override field fully replaces the bucket default when set.
func ResolveProfile(item Item, override *Override) ItemProfile {
	bucket := ClassifyItem(item)
	defaults := bucketProfiles[bucket]

	profile := ItemProfile{
		Bucket:        bucket,
		DensityKgPerL: defaults.DensityKgPerL,
		Fragility:     defaults.Fragility,
		NeedsVent:     defaults.NeedsVent,
		MixAllowed:    defaults.MixAllowed,
		BundleSize:    defaults.BundleSize,
		BundleVolumeL: defaults.BundleVolumeL,
	}

	if override == nil {
		return profile
	}

	if override.Fragility != nil {
		profile.Fragility = *override.Fragility
	}
	if override.MixAllowed != nil {
		profile.MixAllowed = *override.MixAllowed
	}
	if override.NeedsVent != nil {
		profile.NeedsVent = *override.NeedsVent
	}
	if override.MinContainerKey != nil {
		profile.MinContainerKey = *override.MinContainerKey
	}
	if override.MaxKgPerBox != nil {
		profile.MaxKgPerBox = *override.MaxKgPerBox
	}
	if override.DensityKgPerL != nil && *override.DensityKgPerL > 0 {
		profile.DensityKgPerL = *override.DensityKgPerL
	}
	if override.UnitVolumeL != nil && *override.UnitVolumeL > 0 {
		profile.UnitVolumeL = *override.UnitVolumeL
	}

	return profile
}
