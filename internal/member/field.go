package member

import (
	"context"

	"github.com/distcla/cla/internal/callctx"
	"github.com/distcla/cla/internal/path"
	"github.com/distcla/cla/internal/telemetry"
	"github.com/distcla/cla/internal/transport"
	"github.com/distcla/cla/internal/valueentity"
	"github.com/distcla/cla/internal/worker"
)

// Field sub-paths: a Field member at "N::I.Speed" is backed by a Get
// method at "N::I.Speed.Get", a Set method at "N::I.Speed.Set", and a
// Notification event at "N::I.Speed.Notification" — one shared ValueEntity
// behind all three (spec.md §3 "A Field is really three members sharing a
// value").
const (
	fieldGetSuffix          = "Get"
	fieldSetSuffix          = "Set"
	fieldNotificationSuffix = "Notification"
)

// ConsumedField is the consumer-side Field runtime (spec.md §4.D variant
// for Field): Get and Set are ConsumedMethod calls; the Notification
// subscription overwrites Entity on every inbound update exactly like a
// Consumed Event, so a host that only ever reads Entity sees it converge
// without issuing a single Get (scenario S2).
type ConsumedField struct {
	fullPath string
	entity   *valueentity.ValueEntity

	get    *ConsumedMethod
	set    *ConsumedMethod
	update *Consumed
}

// NewConsumedField returns an unconnected Consumed Field runtime.
func NewConsumedField(fullPath string, w *worker.Service) *ConsumedField {
	entity := valueentity.New()
	return &ConsumedField{
		fullPath: fullPath,
		entity:   entity,
		get:      NewConsumedMethod(path.Suffix(fullPath, fieldGetSuffix), w),
		set:      NewConsumedMethod(path.Suffix(fullPath, fieldSetSuffix), w),
		update:   NewConsumed(path.Suffix(fullPath, fieldNotificationSuffix), Event, entity),
	}
}

func (f *ConsumedField) Path() string        { return f.fullPath }
func (f *ConsumedField) Kind() Kind          { return Field }
func (f *ConsumedField) Direction() Direction { return DirConsumed }
func (f *ConsumedField) Entity() *valueentity.ValueEntity { return f.entity }

func (f *ConsumedField) Connected() bool {
	return f.get.Connected() && f.set.Connected() && f.update.Connected()
}

// SetTelemetry attaches retry counters to the Get/Set ConsumedMethods
// backing this field.
func (f *ConsumedField) SetTelemetry(t *telemetry.Telemetry) {
	f.get.SetTelemetry(t)
	f.set.SetTelemetry(t)
}

// Connect wires all three sub-members. labelsFor must return the mandatory
// matching labels for a given full sub-path (the DO registry derives these
// once per member via path.DeriveLabels).
func (f *ConsumedField) Connect(mw transport.Middleware, labelsFor func(fullPath string) (path.Labels, error)) error {
	getLabels, err := labelsFor(f.get.Path())
	if err != nil {
		return err
	}
	if err := f.get.Connect(mw, getLabels); err != nil {
		return err
	}

	setLabels, err := labelsFor(f.set.Path())
	if err != nil {
		return err
	}
	if err := f.set.Connect(mw, setLabels); err != nil {
		return err
	}

	updateLabels, err := labelsFor(f.update.Path())
	if err != nil {
		return err
	}
	return f.update.Connect(mw, updateLabels)
}

func (f *ConsumedField) Disconnect() error {
	errs := [...]error{f.get.Disconnect(), f.set.Disconnect(), f.update.Disconnect()}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Get dispatches a Get call; the response payload overwrites Entity exactly
// like an inbound notification, so callers observing Entity (rather than
// the callback) see the fetched value either way.
func (f *ConsumedField) Get(ctx context.Context, cb callctx.ResponseCallback) (*callctx.ConsumerCallContext, error) {
	cc := callctx.NewConsumerCallContext()
	wrapped := func(state callctx.State, output []byte) {
		if state == callctx.Returned {
			f.entity.SetData(output)
		}
		if cb != nil {
			cb(state, output)
		}
	}
	if err := f.get.Dispatch(ctx, nil, cc, wrapped); err != nil {
		return nil, err
	}
	return cc, nil
}

// Set dispatches a Set call carrying payload. Per scenario S6, the Set
// response is itself the new authoritative value: it overwrites Entity the
// same way Get's response does ("Setter behaves like a Getter" on return).
func (f *ConsumedField) Set(ctx context.Context, payload []byte, cb callctx.ResponseCallback) (*callctx.ConsumerCallContext, error) {
	cc := callctx.NewConsumerCallContext()
	wrapped := func(state callctx.State, output []byte) {
		if state == callctx.Returned {
			f.entity.SetData(output)
		}
		if cb != nil {
			cb(state, output)
		}
	}
	if err := f.set.Dispatch(ctx, payload, cc, wrapped); err != nil {
		return nil, err
	}
	return cc, nil
}

// ProvidedField is the provider-side Field runtime. Get/Set are
// ProvidedMethods whose default handlers (installed by NewProvidedField)
// read and write Entity directly; a host may override either with
// SetGetHandler/SetSetHandler to run custom validation before committing.
// The Notification publisher republishes Entity on every on-change, so a
// provider-side Set naturally notifies every subscribed consumer.
type ProvidedField struct {
	fullPath string
	entity   *valueentity.ValueEntity

	get    *ProvidedMethod
	set    *ProvidedMethod
	update *Provided
}

// NewProvidedField returns an unconnected Provided Field runtime with
// default Get/Set handlers: Get answers with the current Entity bytes
// (scenario S6); Set commits the request payload into Entity and echoes it
// back as the response, which also fires the Notification publisher.
func NewProvidedField(fullPath string) *ProvidedField {
	entity := valueentity.New()
	f := &ProvidedField{
		fullPath: fullPath,
		entity:   entity,
		get:      NewProvidedMethod(path.Suffix(fullPath, fieldGetSuffix)),
		set:      NewProvidedMethod(path.Suffix(fullPath, fieldSetSuffix)),
		update:   NewProvided(path.Suffix(fullPath, fieldNotificationSuffix), Event, entity, valueentity.OnChange),
	}
	f.get.SetHandler(f.defaultGet)
	f.set.SetHandler(f.defaultSet)
	return f
}

func (f *ProvidedField) Path() string        { return f.fullPath }
func (f *ProvidedField) Kind() Kind          { return Field }
func (f *ProvidedField) Direction() Direction { return DirProvided }
func (f *ProvidedField) Entity() *valueentity.ValueEntity { return f.entity }

func (f *ProvidedField) Connected() bool {
	return f.get.Connected() && f.set.Connected() && f.update.Connected()
}

func (f *ProvidedField) defaultGet(cc *callctx.ProviderCallContext) {
	cc.WriteOutput(f.entity.CopyData())
}

func (f *ProvidedField) defaultSet(cc *callctx.ProviderCallContext) {
	f.entity.SetData(cc.InputParameters.CopyData())
	cc.WriteOutput(f.entity.CopyData())
}

// SetGetHandler overrides the default Get handler.
func (f *ProvidedField) SetGetHandler(h ProvidedHandler) { f.get.SetHandler(h) }

// SetSetHandler overrides the default Set handler. A replacement that
// still wants notification fan-out must call Entity().SetData itself.
func (f *ProvidedField) SetSetHandler(h ProvidedHandler) { f.set.SetHandler(h) }

func (f *ProvidedField) Connect(mw transport.Middleware, labelsFor func(fullPath string) (path.Labels, error)) error {
	getLabels, err := labelsFor(f.get.Path())
	if err != nil {
		return err
	}
	if err := f.get.Connect(mw, getLabels); err != nil {
		return err
	}

	setLabels, err := labelsFor(f.set.Path())
	if err != nil {
		return err
	}
	if err := f.set.Connect(mw, setLabels); err != nil {
		return err
	}

	updateLabels, err := labelsFor(f.update.Path())
	if err != nil {
		return err
	}
	return f.update.Connect(mw, updateLabels)
}

func (f *ProvidedField) Disconnect() error {
	errs := [...]error{f.get.Disconnect(), f.set.Disconnect(), f.update.Disconnect()}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
