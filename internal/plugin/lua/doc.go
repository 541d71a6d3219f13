// Package lua lets Lua scripts take part in the application bus.
//
// A Host owns one gopher-lua state with a restricted standard library and
// installs a global bus table:
//
//	local id = bus.subscribe("cursor.moved", function(pos)
//	    print("cursor at", pos.line, pos.column)
//	end)
//
//	bus.subscribe_prefix("plugin.", function(topic, data)
//	    print(topic, data.name)
//	end)
//
//	bus.publish("plugin.greeter.hello", { name = "world" })
//	bus.defer("statusline.refresh")
//	bus.unsubscribe(id)
//
// Go payloads reach Lua as tables: maps keep their keys, slices become
// arrays, and struct fields use snake_case names. Lua tables reach Go as
// map[string]any, or []any for sequences.
//
// An error raised by a Lua handler is returned by the Go dispatch that called
// it. An error from publish or defer is raised in the calling script.
//
// gopher-lua states are not goroutine-safe. Scripts are loaded and handlers
// run on the host loop goroutine only.
package lua
