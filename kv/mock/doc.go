/*
Package mock provides an in-memory implementation of kv.KV for tests.

Seed data, per-key scripted outcomes and a call log let tests of the
continuation registry and the forwarder run without host calls:

	m := mock.New(mock.Config{})
	m.OnSet("promise/call-1").ReturnError(mock.ErrExample)
	m.OnGet("promise/ghost").ReturnError(kv.ErrKeyNotFound)

	for _, c := range m.Calls {
		// c.Op, c.Key, c.Value
	}
*/
package mock
