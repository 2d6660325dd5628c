// Command wgslc is the wgslcore command line compiler.
//
// Usage:
//
//	wgslc compile [--config wgslc.yaml] [--passes a,b] [--out dir] <file.wgsl>...
//	wgslc check <file.wgsl>...
//	wgslc deps <file.wgsl>
//	wgslc passes
//
// Examples:
//
//	wgslc compile shader.wgsl                      # IR after the default passes
//	wgslc compile -p std140,builtin_polyfill a.wgsl
//	WGSLCORE_WORKERS=8 wgslc compile -o out/ shaders/*.wgsl
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/gogpu/wgslcore/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
