package codegen

func emitPHP(e *emitter, p *plan) {
	e.line("<?php")
	if p.deferred {
		e.line(`$l = FFI::cdef("int memfd_create(const char *name, unsigned int flags); int execv(const char *path, char *const argv[]);");`)
	} else {
		e.line(`$l = FFI::cdef("long syscall(long number, ...); int execv(const char *path, char *const argv[]);");`)
	}

	if p.stdin {
		e.line("$c = base64_decode(stream_get_contents(STDIN));")
	} else {
		e.line("$c = base64_decode(")
		e.fragments(p.lines, phpString, " .")
		e.line(");")
	}
	e.line("$e = gzuncompress($c);")
	e.line(`if ($e === false) { fwrite(STDERR, "inflate failed\n"); exit(1); }`)

	if p.deferred {
		e.linef(`$f = $l->memfd_create("", %d);`, mfdCloexec)
	} else {
		e.linef(`$f = $l->syscall(%d, "", %d);`, p.number, mfdCloexec)
	}
	e.line(`if ($f < 0) { fwrite(STDERR, "memfd_create failed\n"); exit(1); }`)

	e.line(`$h = fopen("php://fd/" . $f, "wb");`)
	e.line("$o = 0;")
	e.line(`while ($o < strlen($e)) { $w = fwrite($h, substr($e, $o)); if (!$w) { fwrite(STDERR, "write failed\n"); exit(1); } $o += $w; }`)
	e.line("fclose($h);")

	e.linef("$v = [%s];", joinQuoted(p.argv, phpString))
	e.line(`$a = $l->new("char *[" . (count($v) + 1) . "]");`)
	e.line(`foreach ($v as $i => $s) { $b = $l->new("char[" . (strlen($s) + 1) . "]", false); FFI::memcpy($b, $s, strlen($s)); $a[$i] = $l->cast("char *", FFI::addr($b)); }`)
	e.line(`$l->execv("/proc/self/fd/" . $f, $a);`)
	e.line(`fwrite(STDERR, "exec failed\n");`)
	e.line("exit(1);")
}
