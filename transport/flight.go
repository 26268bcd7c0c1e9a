package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/hugr-lab/runway-go/auth"
	"github.com/hugr-lab/runway-go/internal/codec"
	"github.com/hugr-lab/runway-go/plan"
)

// Action types understood by Airport-style executors.
const (
	actionExecuteCommand = "execute_command"
	actionExplain        = "explain"
)

// FlightConfig configures a gRPC Flight transport.
type FlightConfig struct {
	// Address is the executor endpoint (e.g., "localhost:50051").
	// REQUIRED: MUST be non-empty.
	Address string

	// Token provides bearer tokens attached to every RPC.
	// OPTIONAL: If nil, requests are unauthenticated.
	Token auth.TokenProvider

	// Credentials are the transport credentials for the connection.
	// OPTIONAL: Uses insecure (plaintext) credentials if nil.
	Credentials credentials.TransportCredentials

	// MaxMessageSize sets maximum gRPC message size in bytes.
	// OPTIONAL: If 0, uses gRPC default (4MB).
	// Recommended: 16MB for large Arrow batches.
	MaxMessageSize int

	// DialOptions are appended to the options derived from the fields above.
	// OPTIONAL.
	DialOptions []grpc.DialOption

	// Logger for internal logging.
	// OPTIONAL: Uses slog.Default() if nil.
	Logger *slog.Logger
}

// Flight is the gRPC Arrow Flight implementation of Client.
//
// Plans travel zstd-compressed inside Flight tickets (queries) and action
// bodies (commands, explain); explanation bodies come back compressed the
// same way, and result schemas come back through GetSchema.
// Record batches are decoded straight into the allocator the session
// passes to Execute, so stream buffers stay accounted in the arena.
type Flight struct {
	conn   *grpc.ClientConn
	client flight.Client
	comp   *codec.Compressor
	decomp *codec.Decompressor
	logger *slog.Logger
}

// DialFlight connects to a remote executor and returns the transport.
// The connection is lazy in the gRPC sense; the first RPC surfaces
// connectivity errors.
func DialFlight(cfg FlightConfig) (*Flight, error) {
	if cfg.Address == "" {
		return nil, errors.New("flight transport: address cannot be empty")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	creds := cfg.Credentials
	if creds == nil {
		creds = insecure.NewCredentials()
	}

	opts := []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	if cfg.MaxMessageSize > 0 {
		opts = append(opts, grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(cfg.MaxMessageSize),
			grpc.MaxCallSendMsgSize(cfg.MaxMessageSize),
		))
	}
	if cfg.Token != nil {
		secure := cfg.Credentials != nil
		opts = append(opts, grpc.WithPerRPCCredentials(auth.NewBearerCredentials(cfg.Token, secure)))
	}
	opts = append(opts, cfg.DialOptions...)

	conn, err := grpc.NewClient(cfg.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Address, err)
	}

	comp, err := codec.NewCompressor()
	if err != nil {
		conn.Close()
		return nil, err
	}
	decomp, err := codec.NewDecompressor()
	if err != nil {
		comp.Close()
		conn.Close()
		return nil, err
	}

	return &Flight{
		conn:   conn,
		client: flight.NewClientFromConn(conn, nil),
		comp:   comp,
		decomp: decomp,
		logger: logger,
	}, nil
}

// encodePlan serializes and compresses a plan for the wire.
func (f *Flight) encodePlan(p *plan.Plan) ([]byte, error) {
	data, err := plan.Encode(p)
	if err != nil {
		return nil, err
	}
	return f.comp.Compress(data)
}

// Execute implements Client. The returned reader decodes record batches
// through mem; the caller owns the reader and must Release it.
func (f *Flight) Execute(ctx context.Context, p *plan.Plan, mem memory.Allocator) (array.RecordReader, error) {
	payload, err := f.encodePlan(p)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("Dispatching plan", "plan", p.String(), "ticket_size", len(payload))

	stream, err := f.client.DoGet(ctx, &flight.Ticket{Ticket: payload})
	if err != nil {
		return nil, err
	}

	reader, err := flight.NewRecordReader(stream, ipc.WithAllocator(mem))
	if err != nil {
		return nil, err
	}

	return reader, nil
}

// ExecuteCommand implements Client. The action stream is drained to EOF so
// remote-side failures surface here, not on a later call.
func (f *Flight) ExecuteCommand(ctx context.Context, p *plan.Plan) error {
	payload, err := f.encodePlan(p)
	if err != nil {
		return err
	}

	stream, err := f.client.DoAction(ctx, &flight.Action{
		Type: actionExecuteCommand,
		Body: payload,
	})
	if err != nil {
		return err
	}

	for {
		if _, err := stream.Recv(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// Analyze implements Client. Schema requests go through the GetSchema RPC;
// explanations through the explain action.
func (f *Flight) Analyze(ctx context.Context, p *plan.Plan, mode AnalyzeMode) (*Metadata, error) {
	payload, err := f.encodePlan(p)
	if err != nil {
		return nil, err
	}

	switch mode {
	case AnalyzeSchema:
		res, err := f.client.GetSchema(ctx, &flight.FlightDescriptor{
			Type: flight.DescriptorCMD,
			Cmd:  payload,
		})
		if err != nil {
			return nil, err
		}

		schema, err := flight.DeserializeSchema(res.GetSchema(), memory.DefaultAllocator)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize schema: %w", err)
		}
		return &Metadata{Schema: schema}, nil

	case AnalyzeExplain:
		stream, err := f.client.DoAction(ctx, &flight.Action{
			Type: actionExplain,
			Body: payload,
		})
		if err != nil {
			return nil, err
		}

		// Explanation bodies come back zstd-compressed, mirroring the
		// compressed request side.
		var explain []byte
		for {
			res, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return &Metadata{Explain: string(explain)}, nil
				}
				return nil, err
			}
			body, err := f.decomp.Decompress(res.GetBody())
			if err != nil {
				return nil, err
			}
			explain = append(explain, body...)
		}

	default:
		return nil, fmt.Errorf("unknown analyze mode: %d", mode)
	}
}

// Shutdown implements Client. Closes the codec state and the connection.
func (f *Flight) Shutdown() error {
	f.decomp.Close()
	if err := f.comp.Close(); err != nil {
		f.logger.Error("Failed to close compressor", "error", err)
	}
	return f.conn.Close()
}
