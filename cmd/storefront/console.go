package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/storefront/widget/internal/application/storefront"
	"github.com/storefront/widget/internal/domain/catalog"
	"go.uber.org/zap"
)

const consoleHelp = `commands:
  select <id>        choose a product
  add                add the selected product to the cart
  qty <id> <delta>   change a cart line by delta
  remove <id>        remove a cart line
  refresh            redraw every region
  help               show this help`

// shopper is the part of the orchestrator the console drives
type shopper interface {
	Select(ctx context.Context, id catalog.ProductID) error
	AddToCart(ctx context.Context) error
	ChangeQuantity(ctx context.Context, id catalog.ProductID, delta int) error
	RemoveFromCart(ctx context.Context, id catalog.ProductID) error
	RefreshAll(ctx context.Context) error
}

// console turns text commands into shopper actions. Failures are printed the
// way the widget would show them to the shopper.
type console struct {
	shop   shopper
	out    io.Writer
	logger *zap.Logger
}

func newConsole(shop shopper, out io.Writer, logger *zap.Logger) *console {
	return &console{shop: shop, out: out, logger: logger}
}

// Run reads commands until in is exhausted or ctx is done
func (c *console) Run(ctx context.Context, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := c.execute(ctx, strings.Fields(line)); err != nil {
			fmt.Fprintln(c.out, "!", err.Error())
		}
	}
	if err := scanner.Err(); err != nil {
		c.logger.Warn("console input failed", zap.Error(err))
	}
}

func (c *console) execute(ctx context.Context, args []string) error {
	switch args[0] {
	case "select":
		if len(args) != 2 {
			return errors.New("usage: select <id>")
		}
		return c.shop.Select(ctx, catalog.ProductID(args[1]))
	case "add":
		return c.shop.AddToCart(ctx)
	case "qty":
		if len(args) != 3 {
			return errors.New("usage: qty <id> <delta>")
		}
		delta, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid delta %q", args[2])
		}
		return c.shop.ChangeQuantity(ctx, catalog.ProductID(args[1]), delta)
	case "remove":
		if len(args) != 2 {
			return errors.New("usage: remove <id>")
		}
		return c.shop.RemoveFromCart(ctx, catalog.ProductID(args[1]))
	case "refresh":
		return c.shop.RefreshAll(ctx)
	case "help":
		fmt.Fprintln(c.out, consoleHelp)
		return nil
	default:
		return fmt.Errorf("unknown command %q, try help", args[0])
	}
}

var _ shopper = (*storefront.Orchestrator)(nil)
