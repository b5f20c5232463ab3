package question

import (
	"math"

	"activity-player/internal/domain"
)

// Upper bounds for numbers read from payloads.
const (
	maxObjects      = 100 // render items and counting choices
	maxDelayMS      = 60_000
	maxPixels       = 10_000
	maxRewardPoints = 1_000_000
)

// decoration resolves the drawable objects of a question. A structured
// canvas description wins over the flat object_count/object_image_url pair.
// Returns nil items when the question carries no decoration.
func decoration(m, config map[string]any) ([]domain.RenderItem, domain.Layout) {
	layout := parseLayout(object(firstValue(config, "layout_config", "layout")))

	canvas := object(firstValue(m, "canvas", "canvas_data"))
	if canvas == nil {
		canvas = object(config["canvas"])
	}
	if canvas != nil {
		if items := canvasItems(canvas, object(config["animation"])); len(items) > 0 {
			return items, layout
		}
	}

	n, _ := number(config["object_count"])
	count := clampCount(n)
	if count == 0 {
		return nil, layout
	}
	image := text(firstValue(config, "object_image_url", "object_image"))
	anim := parseAnimation(object(config["animation"]))
	items := make([]domain.RenderItem, 0, count)
	for i := 0; i < count; i++ {
		items = append(items, renderItem(len(items), image, anim))
	}
	return items, layout
}

func canvasItems(canvas, fallback map[string]any) []domain.RenderItem {
	var items []domain.RenderItem
	for _, raw := range list(firstValue(canvas, "objects", "items")) {
		obj := object(raw)
		if obj == nil {
			continue
		}
		n, ok := number(firstValue(obj, "count", "quantity"))
		if !ok {
			n = 1
		}
		image := text(firstValue(obj, "image", "image_url", "src", "object_image_url"))
		animRaw := object(obj["animation"])
		if animRaw == nil {
			animRaw = fallback
		}
		anim := parseAnimation(animRaw)
		for i := 0; i < clampCount(n) && len(items) < maxObjects; i++ {
			items = append(items, renderItem(len(items), image, anim))
		}
	}
	return items
}

// animConfig is an animation descriptor before per-item delays are applied.
type animConfig struct {
	kind         string
	animateIn    bool
	delayBetween int
}

func parseAnimation(m map[string]any) animConfig {
	if m == nil {
		return animConfig{}
	}
	delay, _ := number(m["delay_between"])
	return animConfig{
		kind:         text(firstValue(m, "animation_type", "type")),
		animateIn:    boolean(m["animate_in"]),
		delayBetween: clampInt(delay, maxDelayMS),
	}
}

func renderItem(index int, image string, anim animConfig) domain.RenderItem {
	item := domain.RenderItem{
		Index:    index,
		ImageURL: image,
		Animation: domain.Animation{
			Type:      anim.kind,
			AnimateIn: anim.animateIn,
		},
	}
	if anim.animateIn {
		item.Animation.DelayMS = index * anim.delayBetween
	}
	return item
}

func parseLayout(m map[string]any) domain.Layout {
	var layout domain.Layout
	if m == nil {
		return layout
	}
	switch size := firstValue(m, "object_size", "size").(type) {
	case string:
		layout.Size = size
	default:
		if px, ok := number(size); ok && px > 0 {
			layout.SizePx = clampInt(px, maxPixels)
		}
	}
	if px, ok := number(firstValue(m, "spacing", "gap")); ok {
		layout.SpacingPx = clampInt(px, maxPixels)
	}
	layout.Randomize = boolean(m["randomize"])
	return layout
}

func clampCount(n float64) int {
	return clampInt(n, maxObjects)
}

// clampInt floors n into [0, limit]; NaN and negatives become 0.
func clampInt(n, limit float64) int {
	if math.IsNaN(n) || n <= 0 {
		return 0
	}
	return int(math.Min(math.Floor(n), limit))
}
