// Package factory provides the generic registry used to build pluggable
// modules (schedule backends, metric sinks) from configuration. A module is a
// type name plus raw settings; factories decode the settings into a typed
// struct with Decode and return the implementation.
//
//	reg := factory.NewRegistry[schedule.Backend]()
//	_ = reg.Register("memory", func(conf map[string]any) (schedule.Backend, error) {
//	    var c struct{ Fixture string `json:"fixture"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return memory.FromFixture(c.Fixture)
//	})
package factory
