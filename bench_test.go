package xir

import (
	"context"
	"runtime"
	"testing"

	"github.com/gogpu/xir/internal/samples"
	"github.com/gogpu/xir/ir"
	"github.com/gogpu/xir/printer"
)

// BenchmarkOptimize measures the default pipeline on every sample,
// including building the module.
func BenchmarkOptimize(b *testing.B) {
	ctx := context.Background()
	for _, s := range samples.All() {
		b.Run(s.Name, func(b *testing.B) {
			opts := DefaultOptions()
			b.ReportAllocs()
			b.ResetTimer()

			var m *ir.Module
			for i := 0; i < b.N; i++ {
				m = s.Build()
				if err := Optimize(ctx, m, opts); err != nil {
					b.Fatalf("optimize failed: %v", err)
				}
			}
			runtime.KeepAlive(m)
		})
	}
}

// BenchmarkOptimizeWithoutValidation isolates the cost of the passes.
func BenchmarkOptimizeWithoutValidation(b *testing.B) {
	ctx := context.Background()
	for _, s := range samples.All() {
		b.Run(s.Name, func(b *testing.B) {
			opts := DefaultOptions()
			opts.Validate = false
			b.ReportAllocs()
			b.ResetTimer()

			var m *ir.Module
			for i := 0; i < b.N; i++ {
				m = s.Build()
				if err := Optimize(ctx, m, opts); err != nil {
					b.Fatalf("optimize failed: %v", err)
				}
			}
			runtime.KeepAlive(m)
		})
	}
}

// BenchmarkPass measures each pass alone over all samples.
func BenchmarkPass(b *testing.B) {
	ctx := context.Background()
	for _, name := range Passes() {
		b.Run(name, func(b *testing.B) {
			opts := Options{Passes: []string{name}}
			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				for _, s := range samples.All() {
					if err := Optimize(ctx, s.Build(), opts); err != nil {
						b.Fatalf("%s on %s failed: %v", name, s.Name, err)
					}
				}
			}
		})
	}
}

// BenchmarkOptimizeModules measures concurrent optimization of a batch of
// independent modules.
func BenchmarkOptimizeModules(b *testing.B) {
	ctx := context.Background()
	opts := DefaultOptions()
	opts.Workers = runtime.GOMAXPROCS(0)
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		var modules []*ir.Module
		for j := 0; j < 4; j++ {
			for _, s := range samples.All() {
				modules = append(modules, s.Build())
			}
		}
		if err := OptimizeModules(ctx, modules, opts); err != nil {
			b.Fatalf("optimize failed: %v", err)
		}
	}
}

// BenchmarkValidate measures module validation alone.
func BenchmarkValidate(b *testing.B) {
	for _, s := range samples.All() {
		b.Run(s.Name, func(b *testing.B) {
			m := s.Build()
			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				if err := validate(m); err != nil {
					b.Fatalf("validate failed: %v", err)
				}
			}
		})
	}
}

// BenchmarkFullPipeline measures build, optimize and print together.
func BenchmarkFullPipeline(b *testing.B) {
	ctx := context.Background()
	opts := DefaultOptions()
	b.ReportAllocs()
	b.ResetTimer()

	var text string
	for i := 0; i < b.N; i++ {
		for _, s := range samples.All() {
			m := s.Build()
			if err := Optimize(ctx, m, opts); err != nil {
				b.Fatalf("optimize failed: %v", err)
			}
			text = printer.Print(m)
		}
	}
	runtime.KeepAlive(text)
}
