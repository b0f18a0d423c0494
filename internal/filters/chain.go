package filters

// chain connects two filters: up's output is down's input. Longer chains
// nest, so driving the head pumps every link.
type chain struct {
	up, down Filter

	buf      []byte // up's output block, down's input
	eof      bool   // current input to up is the final one
	upDone   bool   // up has nothing more for its current input
	upFilled bool   // up's last step filled buf; grow it before the next one
	downBusy bool   // down still holds output for its current input
}

// NewChain links filters in data-flow order: links[0] sees the caller's
// input, the last link writes the caller's output.
func NewChain(links ...Filter) Filter {
	switch len(links) {
	case 0:
		return NewIdentity()
	case 1:
		return links[0]
	}
	return &chain{up: links[0], down: NewChain(links[1:]...)}
}

func (c *chain) Init() error {
	c.eof, c.upDone, c.upFilled, c.downBusy = false, true, false, false
	if err := c.up.Init(); err != nil {
		return err
	}
	return c.down.Init()
}

func (c *chain) Done() error {
	upErr := c.up.Done()
	downErr := c.down.Done()
	if upErr != nil {
		return upErr
	}
	return downErr
}

func (c *chain) Growth() int {
	return c.up.Growth() * c.down.Growth() / 100
}

func (c *chain) Begin(in []byte, eof bool, out []byte) (int, Result, error) {
	if c.downBusy || !c.upDone {
		return 0, Finished, ErrBusy
	}
	c.eof = eof
	if need := blockSize(len(in), c.up.Growth()); len(c.buf) < need {
		c.buf = make([]byte, need)
	}

	n, r, err := c.up.Begin(in, eof, c.buf)
	if err != nil {
		return 0, Finished, err
	}
	c.upDone, c.upFilled = r == Finished, r == More
	dn, dr, err := c.down.Begin(c.buf[:n], c.eof && c.upDone, out)
	return c.drive(dn, dr, err, out)
}

func (c *chain) Proceed(out []byte) (int, Result, error) {
	if c.downBusy {
		dn, dr, err := c.down.Proceed(out)
		return c.drive(dn, dr, err, out)
	}
	if c.upDone {
		return 0, Finished, nil
	}
	return c.drive(0, Finished, nil, out)
}

// drive settles a downstream step and, while down is idle and out is still
// empty, pulls the next block from up.
func (c *chain) drive(dn int, dr Result, err error, out []byte) (int, Result, error) {
	for {
		if err != nil {
			return dn, Finished, err
		}
		if dr == More {
			c.downBusy = true
			return dn, More, nil
		}
		c.downBusy = false
		if c.upDone {
			return dn, Finished, nil
		}
		if dn > 0 {
			return dn, More, nil
		}

		// Down consumed everything it was given. If up filled the last
		// block it is producing faster than down drains, so enlarge.
		if c.upFilled && len(c.buf) < maxBlock {
			c.buf = make([]byte, 2*len(c.buf))
		}
		n, r, uerr := c.up.Proceed(c.buf)
		if uerr != nil {
			return 0, Finished, uerr
		}
		c.upDone, c.upFilled = r == Finished, r == More
		dn, dr, err = c.down.Begin(c.buf[:n], c.eof && c.upDone, out)
	}
}

// Invert builds chain(invert(down), invert(up)).
func (c *chain) Invert() (Filter, error) {
	up, err := Invert(c.up)
	if err != nil {
		return nil, err
	}
	down, err := Invert(c.down)
	if err != nil {
		return nil, err
	}
	return NewChain(down, up), nil
}

// identity passes input through unchanged.
type identity struct{}

func (identity) feed(in []byte, eof bool) ([]byte, error) {
	return append([]byte(nil), in...), nil
}

func (identity) reset() {}

// NewIdentity returns a filter that copies its input.
func NewIdentity() Filter {
	f := &invertibleBlock{block: newBlock(identity{}, 100)}
	f.inverse = func() (Filter, error) { return NewIdentity(), nil }
	return f
}
