package binarycodec

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/dynpb/protoreflect/desc"
	"github.com/dynpb/protoreflect/dynamic"
)

// DecodeAll decodes a batch of independent wire-format payloads against
// the same descriptor concurrently, the way registry.TypeRegistry.RegisterAll
// fans a batch of file registrations out across goroutines. Results are
// returned in the same order as payloads; the first error encountered
// cancels the remaining work and is returned.
func (d *BinaryDeserializer) DecodeAll(ctx context.Context, payloads [][]byte, md *desc.MessageDescriptor) ([]*dynamic.Message, error) {
	results := make([]*dynamic.Message, len(payloads))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, payload := range payloads {
		i, payload := i, payload
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			m, err := d.Deserialize(payload, md)
			if err != nil {
				return err
			}
			results[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
