package telemetry

import (
	"fmt"
	"maps"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

type SpanAttributes struct {
	ActionCategory string

	TargetContract     optional[string]    // fuzz.target.contract
	CampaignCheck      optional[string]    // fuzz.campaign.check
	SourceHash         optional[string]    // fuzz.source.hash
	corpusUpdateMethod optional[string]    // fuzz.corpus.update.method
	corpusUpdateTime   optional[time.Time] // fuzz.corpus.update.time
	corpusSize         optional[int]       // fuzz.corpus.size
	corpusAdditions    optional[[]string]  // fuzz.corpus.additions

	extraAttributes map[string]any
}

func NewSpanAttributes(actionCategory ActionCategory) *SpanAttributes {
	return &SpanAttributes{
		ActionCategory:  actionCategory.String(),
		extraAttributes: make(map[string]any),
	}
}

// returns an empty SpanAttributes instance with no action category.
// this is useful for creating a SpanAttributes instance that can be populated later.
func EmptySpanAttributes() *SpanAttributes {
	return &SpanAttributes{
		extraAttributes: make(map[string]any),
	}
}

// Merge updates the current SpanAttributes with values from another SpanAttributes.
// Values are only updated if they are set in the other SpanAttributes and not set in the current one.
// The ActionCategory is always updated regardless of its state.
func (o *SpanAttributes) Merge(other *SpanAttributes) {
	if other == nil {
		return
	}

	if other.ActionCategory != "" {
		o.ActionCategory = other.ActionCategory
	}

	// Merge optional fields - only update if not already set
	mergeOptional(&o.TargetContract, &other.TargetContract)
	mergeOptional(&o.CampaignCheck, &other.CampaignCheck)
	mergeOptional(&o.SourceHash, &other.SourceHash)
	mergeOptional(&o.corpusUpdateMethod, &other.corpusUpdateMethod)
	mergeOptional(&o.corpusUpdateTime, &other.corpusUpdateTime)
	mergeOptional(&o.corpusSize, &other.corpusSize)
	mergeOptional(&o.corpusAdditions, &other.corpusAdditions)

	// Merge extra attributes
	if o.extraAttributes == nil {
		o.extraAttributes = make(map[string]any)
	}
	for k, v := range other.extraAttributes {
		if _, exists := o.extraAttributes[k]; !exists {
			o.extraAttributes[k] = v
		}
	}
}

func (o *SpanAttributes) WithTargetContract(val string) *SpanAttributes {
	o.TargetContract.Set(val)
	return o
}

func (o *SpanAttributes) WithCampaignCheck(val string) *SpanAttributes {
	o.CampaignCheck.Set(val)
	return o
}

func (o *SpanAttributes) WithSourceHash(val string) *SpanAttributes {
	o.SourceHash.Set(val)
	return o
}

func (o *SpanAttributes) WithCorpusUpdateMethod(val string) *SpanAttributes {
	o.corpusUpdateMethod.Set(val)
	return o
}

func (o *SpanAttributes) WithCorpusUpdateTime(val time.Time) *SpanAttributes {
	o.corpusUpdateTime.Set(val)
	return o
}

func (o *SpanAttributes) WithCorpusSize(val int) *SpanAttributes {
	o.corpusSize.Set(val)
	return o
}

func (o *SpanAttributes) WithCorpusAdditions(val []string) *SpanAttributes {
	o.corpusAdditions.Set(val)
	return o
}

func (o *SpanAttributes) WithExtraAttribute(key string, val any) *SpanAttributes {
	if o.extraAttributes == nil {
		o.extraAttributes = make(map[string]any)
	}
	o.extraAttributes[key] = val
	return o
}

func (o *SpanAttributes) WithExtraAttributes(attrs map[string]any) *SpanAttributes {
	if o.extraAttributes == nil {
		o.extraAttributes = make(map[string]any)
	}
	maps.Copy(o.extraAttributes, attrs)
	return o
}

func (o SpanAttributes) Attributes() []attribute.KeyValue {
	var attrs []attribute.KeyValue
	attrs = append(attrs, attribute.String("fuzz.action.category", o.ActionCategory))
	if o.TargetContract.set {
		attrs = append(attrs, attribute.String("fuzz.target.contract", o.TargetContract.val))
	}
	if o.CampaignCheck.set {
		attrs = append(attrs, attribute.String("fuzz.campaign.check", o.CampaignCheck.val))
	}
	if o.SourceHash.set {
		attrs = append(attrs, attribute.String("fuzz.source.hash", o.SourceHash.val))
	}
	if o.corpusUpdateMethod.set {
		attrs = append(attrs, attribute.String("fuzz.corpus.update.method", o.corpusUpdateMethod.val))
	}
	if o.corpusUpdateTime.set {
		attrs = append(attrs, attribute.String("fuzz.corpus.update.time", o.corpusUpdateTime.val.Format(time.RFC3339Nano)))
	}
	if o.corpusSize.set {
		attrs = append(attrs, attribute.Int("fuzz.corpus.size", o.corpusSize.val))
	}
	if o.corpusAdditions.set {
		attrs = append(attrs, attribute.StringSlice("fuzz.corpus.additions", o.corpusAdditions.val))
	}

	for k, v := range o.extraAttributes {
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case int64:
			attrs = append(attrs, attribute.Int64(k, val))
		case float64:
			attrs = append(attrs, attribute.Float64(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}

	return attrs
}

type EventAttributes []attribute.KeyValue

func NewEventAttributes(attributes map[string]string) EventAttributes {
	attrs := make(EventAttributes, 0, len(attributes))
	for k, v := range attributes {
		attrs = append(attrs, attribute.String(k, v))
	}
	return attrs
}

type optional[T any] struct {
	val T
	set bool
}

func (o *optional[T]) Set(val T) { o.val = val; o.set = true }

func mergeOptional[T any](target, source *optional[T]) {
	if !target.set && source.set {
		target.val = source.val
		target.set = true
	}
}
