package migrate

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"sync"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/teranos/citykit/codec"
	"github.com/teranos/citykit/errors"
	"github.com/teranos/citykit/logger"
	"github.com/teranos/citykit/project"
)

// JSMigration runs a script that defines
//
//	function migrate(city, prefs) { ... }
//
// city and prefs are plain objects. The script may mutate them in place or
// return a replacement city. console.log goes to the debug log.
//
// A global codec object expands packed fields for reading:
//
//	codec.decode(obj)              // copy of obj with b64 fields decoded
//	codec.decodeValue(key, value)  // {key: "position", value: [x, y, z]}
//
// Values cross into the runtime as JavaScript numbers, so integers beyond
// 2^53 do not survive a script that touches them.
type JSMigration struct {
	path   string
	logger *zap.SugaredLogger

	once    sync.Once
	program *goja.Program
	err     error
}

// NewJSMigration returns a migration for the script at path. The file is
// read and compiled on first Apply.
func NewJSMigration(path string, log *zap.SugaredLogger) *JSMigration {
	return &JSMigration{path: path, logger: logger.OrNop(log)}
}

// Path of the script
func (m *JSMigration) Path() string { return m.path }

func (m *JSMigration) compile() (*goja.Program, error) {
	m.once.Do(func() {
		src, err := os.ReadFile(m.path)
		if err != nil {
			m.err = errors.Wrapf(err, "read %s", m.path)
			return
		}
		m.program, m.err = goja.Compile(m.path, string(src), true)
		if m.err != nil {
			m.err = errors.Wrapf(m.err, "compile %s", m.path)
		}
	})
	return m.program, m.err
}

// Apply runs the script in a fresh runtime. The runtime is interrupted when
// ctx is done.
func (m *JSMigration) Apply(ctx context.Context, doc project.Document, prefs *project.Preferences) (project.Document, error) {
	program, err := m.compile()
	if err != nil {
		return nil, err
	}

	vm := goja.New()
	m.injectConsole(vm)

	jsonObj := vm.Get("JSON").ToObject(vm)
	parse, _ := goja.AssertFunction(jsonObj.Get("parse"))
	stringify, _ := goja.AssertFunction(jsonObj.Get("stringify"))
	m.injectCodec(vm, parse, stringify)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	if _, err := vm.RunProgram(program); err != nil {
		return nil, m.scriptError(err)
	}
	migrateFn, ok := goja.AssertFunction(vm.Get("migrate"))
	if !ok {
		return nil, errors.Newf("%s does not define function migrate(city, prefs)", m.path)
	}

	prefsMap, err := prefs.ToMap()
	if err != nil {
		return nil, errors.Wrap(err, "encode preferences")
	}
	city, err := toJS(vm, parse, doc)
	if err != nil {
		return nil, err
	}
	prefsVal, err := toJS(vm, parse, prefsMap)
	if err != nil {
		return nil, err
	}

	result, err := migrateFn(goja.Undefined(), city, prefsVal)
	if err != nil {
		return nil, m.scriptError(err)
	}
	if goja.IsUndefined(result) || goja.IsNull(result) {
		result = city
	}

	var out project.Document
	if err := fromJS(stringify, result, &out); err != nil {
		return nil, errors.Wrapf(err, "%s returned a city that is not an object", m.path)
	}
	if out == nil {
		return nil, errors.Newf("%s returned a city that is not an object", m.path)
	}

	var nextPrefs map[string]any
	if err := fromJS(stringify, prefsVal, &nextPrefs); err != nil {
		return nil, errors.Wrapf(err, "%s left prefs that are not an object", m.path)
	}
	if err := prefs.ReplaceFromMap(nextPrefs); err != nil {
		return nil, errors.Wrapf(err, "%s left invalid prefs", m.path)
	}
	return out, nil
}

func (m *JSMigration) injectConsole(vm *goja.Runtime) {
	console := vm.NewObject()
	_ = console.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		m.logger.Debugw(strings.Join(parts, " "), logger.FieldMigration, m.path)
		return goja.Undefined()
	})
	vm.Set("console", console)
}

func (m *JSMigration) injectCodec(vm *goja.Runtime, parse, stringify goja.Callable) {
	throw := func(err error) {
		panic(vm.NewGoError(err))
	}
	obj := vm.NewObject()
	_ = obj.Set("decode", func(call goja.FunctionCall) goja.Value {
		var tree map[string]any
		if err := fromJS(stringify, call.Argument(0), &tree); err != nil || tree == nil {
			throw(errors.New("codec.decode expects an object"))
		}
		decoded, err := codec.Decode(tree)
		if err != nil {
			throw(err)
		}
		v, err := toJS(vm, parse, decoded)
		if err != nil {
			throw(err)
		}
		return v
	})
	_ = obj.Set("decodeValue", func(call goja.FunctionCall) goja.Value {
		key := call.Argument(0).String()
		var value any
		if err := fromJS(stringify, call.Argument(1), &value); err != nil {
			throw(errors.Wrapf(err, "codec.decodeValue %s", key))
		}
		newKey, decoded, err := codec.DecodeValue(key, value)
		if err != nil {
			throw(err)
		}
		v, err := toJS(vm, parse, map[string]any{"key": newKey, "value": decoded})
		if err != nil {
			throw(err)
		}
		return v
	})
	vm.Set("codec", obj)
}

// scriptError keeps the script's own message for thrown exceptions.
func (m *JSMigration) scriptError(err error) error {
	var exc *goja.Exception
	if errors.As(err, &exc) {
		return errors.Newf("%s: %s", m.path, exc.Value().String())
	}
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if cause, ok := interrupted.Value().(error); ok {
			return errors.Wrapf(cause, "%s interrupted", m.path)
		}
	}
	return errors.Wrapf(err, "%s", m.path)
}

func toJS(vm *goja.Runtime, parse goja.Callable, v any) (goja.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encode migration input")
	}
	return parse(goja.Undefined(), vm.ToValue(string(data)))
}

func fromJS(stringify goja.Callable, v goja.Value, dst any) error {
	s, err := stringify(goja.Undefined(), v)
	if err != nil {
		return err
	}
	if goja.IsUndefined(s) {
		return errors.New("value has no JSON form")
	}
	dec := json.NewDecoder(strings.NewReader(s.String()))
	dec.UseNumber()
	return dec.Decode(dst)
}
