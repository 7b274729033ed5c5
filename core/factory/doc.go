// Package factory provides a small generic registry used to build modules
// from configuration. A module is a type name plus a map of raw settings; the
// registered factory decodes the settings into a typed struct and returns the
// concrete implementation.
//
// Example usage:
//
//	reg := factory.NewRegistry[prediction.Backend]()
//	_ = reg.Register("linear", func(conf map[string]any) (prediction.Backend, error) {
//	    var c LinearConfig
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return NewLinear(c)
//	})
//	b, err := reg.Create(factory.ModuleConfig{Type: "linear", Conf: raw})
package factory
