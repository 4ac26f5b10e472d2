package codegen

func emitPython(e *emitter, p *plan) {
	imports := "import ctypes, os, base64, zlib"
	if p.stdin {
		imports += ", sys"
	}
	e.line(imports)
	e.line("l = ctypes.CDLL(None, use_errno=True)")
	if p.deferred {
		e.line("s = l.memfd_create")
	} else {
		e.line("s = l.syscall")
	}

	if p.stdin {
		e.line("c = base64.b64decode(sys.stdin.read())")
	} else {
		e.line("c = base64.b64decode(")
		e.fragments(p.lines, pyBytes, "")
		e.line(")")
	}
	e.line("e = zlib.decompress(c)")

	if p.deferred {
		e.linef("f = s(b'', %d)", mfdCloexec)
	} else {
		e.linef("f = s(%d, b'', %d)", p.number, mfdCloexec)
	}
	e.line("if f < 0: raise OSError(ctypes.get_errno(), 'memfd_create')")

	e.line("while e: e = e[os.write(f, e):]")

	e.linef("os.execv('/proc/self/fd/%%d' %% f, [%s])", joinQuoted(p.argv, pyBytes))
}
