package loader

import (
	"errors"
	"regexp"
	"time"

	"github.com/dop251/goja"
)

// scriptTimeout bounds evaluation of a JavaScript config so a runaway
// script cannot wedge settings resolution.
const scriptTimeout = 2 * time.Second

// exportDefaultRe rewrites a top-level ES default export into the
// CommonJS form the evaluator understands.
var exportDefaultRe = regexp.MustCompile(`(?m)^\s*export\s+default\s+`)

// evalJS evaluates a CommonJS configuration module (.js / .cjs) and
// returns the exported object. The script must be self-contained: there is
// no require() and no module cache, only module.exports.
func evalJS(source string, data []byte) (map[string]any, error) {
	return runScript(FormatJS, source, string(data))
}

// evalMJS evaluates an ES module configuration (.mjs). Only the
// "export default { ... }" form is supported; it is rewritten to the
// CommonJS form before evaluation.
func evalMJS(source string, data []byte) (map[string]any, error) {
	src := exportDefaultRe.ReplaceAllString(string(data), "module.exports = ")
	return runScript(FormatMJS, source, src)
}

// runScript evaluates src in a fresh runtime with a minimal CommonJS
// harness and exports module.exports as a map.
func runScript(format Format, source, src string) (map[string]any, error) {
	vm := goja.New()

	module := vm.NewObject()
	exports := vm.NewObject()
	if err := module.Set("exports", exports); err != nil {
		return nil, newParseError(format, source, err)
	}
	if err := vm.Set("module", module); err != nil {
		return nil, newParseError(format, source, err)
	}
	if err := vm.Set("exports", exports); err != nil {
		return nil, newParseError(format, source, err)
	}

	watchdog := time.AfterFunc(scriptTimeout, func() {
		vm.Interrupt("config evaluation timed out")
	})
	defer watchdog.Stop()

	if _, err := vm.RunScript(source, src); err != nil {
		return nil, newParseError(format, source, err)
	}

	exported := module.Get("exports")
	if exported == nil || goja.IsUndefined(exported) || goja.IsNull(exported) {
		return nil, newParseError(format, source, errors.New("config exports nothing"))
	}

	var config map[string]any
	if err := vm.ExportTo(exported, &config); err != nil {
		return nil, newParseError(format, source, errors.New("config must export an object"))
	}

	return config, nil
}
