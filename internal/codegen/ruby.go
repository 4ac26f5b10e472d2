package codegen

import "strings"

func emitRuby(e *emitter, p *plan) {
	e.line(`require "zlib"`)
	e.line(`require "fiddle"`)
	if p.deferred {
		e.line(`s = Fiddle::Function.new(Fiddle::Handle::DEFAULT["memfd_create"], [Fiddle::TYPE_VOIDP, Fiddle::TYPE_INT], Fiddle::TYPE_INT)`)
	} else {
		e.line(`s = Fiddle::Function.new(Fiddle::Handle::DEFAULT["syscall"], [Fiddle::TYPE_LONG, Fiddle::TYPE_VOIDP, Fiddle::TYPE_INT], Fiddle::TYPE_LONG)`)
	}

	// String#unpack("m") is core; the base64 gem is not always installed.
	if p.stdin {
		e.line(`c = $stdin.read.unpack("m")[0]`)
	} else {
		e.line("c = [")
		e.fragments(p.lines, rubyString, ",")
		e.line(`].join.unpack("m")[0]`)
	}
	e.line("e = Zlib::Inflate.inflate(c)")

	if p.deferred {
		e.linef(`f = s.call("", %d)`, mfdCloexec)
	} else {
		e.linef(`f = s.call(%d, "", %d)`, p.number, mfdCloexec)
	}
	e.line(`raise "memfd_create failed" if f < 0`)

	e.line(`w = IO.for_fd(f, "wb", autoclose: false)`)
	e.line("w.write(e)")
	e.line("w.flush")

	args := []string{`["/proc/self/fd/#{f}", ` + rubyString(p.argv[0]) + "]"}
	for _, a := range p.argv[1:] {
		args = append(args, rubyString(a))
	}
	e.linef("exec(%s)", strings.Join(args, ", "))
}
