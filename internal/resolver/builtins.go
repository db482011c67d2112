package resolver

// Builtins returns the command declarations every parse starts from.
// The execution engine supplies the real implementations; the front
// end only needs their argument shapes to parse call sites.
func Builtins() []Declaration {
	rest := func(name string) Param {
		return Param{Name: name, IsRest: true}
	}
	positional := func(name string) Param {
		return Param{Name: name}
	}
	optional := func(name string) Param {
		return Param{Name: name, HasDefault: true}
	}
	flag := func(name, short string, takesValue bool) Param {
		return Param{Name: name, Shorthand: short, IsFlag: true, TakesValue: takesValue}
	}

	command := func(name string, params ...Param) Declaration {
		return Declaration{
			Name:      name,
			Kind:      DeclCommand,
			Signature: &Signature{Params: params},
		}
	}

	return []Declaration{
		command("echo", rest("args")),
		command("print", rest("args"), flag("no-newline", "n", false)),
		command("ls", optional("path"), flag("all", "a", false), flag("long", "l", false)),
		command("open", positional("path"), flag("raw", "r", false)),
		command("save", positional("path"), flag("append", "a", false), flag("force", "f", false)),
		command("cd", optional("path")),
		command("where", positional("condition")),
		command("each", positional("closure")),
		command("get", positional("column")),
		command("sort-by", rest("columns"), flag("reverse", "r", false)),
		command("first", optional("count")),
		command("last", optional("count")),
		command("length"),
		command("lines"),
		command("str-join", optional("separator")),
	}
}
