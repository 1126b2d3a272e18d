// Command rpcd is a demo RPC server: it loads an IDL directory into a type
// registry, registers one instance exercising synchronous replies,
// asynchronous replies, streaming fragments and errors, and serves it over
// a unix or tcp listener. It is the counterpart of the librpcd reference
// server the C library ships alongside librpc itself.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gertd/go-pluralize"
	"github.com/rodaine/table"

	"github.com/cheewill/go-librpc/object"
	"github.com/cheewill/go-librpc/service"
	"github.com/cheewill/go-librpc/service/audit"
	"github.com/cheewill/go-librpc/transport"
	"github.com/cheewill/go-librpc/transport/stream"
	"github.com/cheewill/go-librpc/typing"
)

func main() {
	listenURI := flag.String("listen", "unix:///tmp/rpcd.sock", "URI to listen for RPC connections on (unix:// or tcp://)")
	idlDir := flag.String("idl", "", "directory of .json IDL files to load into the type registry (optional)")
	auditDir := flag.String("audit-dir", filepath.Join(os.TempDir(), "rpcd-audit"), "directory to write the call-history log and database into")
	listTypes := flag.Bool("list-types", false, "print the loaded type registry as a table and exit")
	flag.Parse()

	registry := typing.NewRegistry()
	if *idlDir != "" {
		if err := registry.LoadDir(os.DirFS(*idlDir), "."); err != nil {
			log.Fatalf("rpcd: loading IDL from %s: %v", *idlDir, err)
		}
	}

	if *listTypes {
		printTypeTable(registry)
		return
	}

	ctx := service.NewContext(registry)
	demo := service.NewInstance("/demo", nil)
	registerDemoMethods(demo)
	if err := ctx.RegisterInstance(demo.Path(), demo); err != nil {
		log.Fatalf("rpcd: registering /demo: %v", err)
	}

	if err := os.MkdirAll(*auditDir, 0700); err != nil {
		log.Fatalf("rpcd: creating audit dir %s: %v", *auditDir, err)
	}
	auditor, err := audit.Open(context.Background(), filepath.Join(*auditDir, "calls.log"), *auditDir)
	if err != nil {
		log.Fatalf("rpcd: opening audit log: %v", err)
	}
	defer auditor.Close()
	ctx.SetResultCache(service.NewResultCache(30 * time.Second))
	ctx.SetAuditor(func(path, interfaceName, methodName string, creds service.Credentials, state service.State) {
		if err := auditor.Log(context.Background(), audit.Record{
			Path:      path,
			Interface: interfaceName,
			Method:    methodName,
			PeerPID:   int64(creds.PID),
			PeerUID:   int64(creds.UID),
			State:     state.String(),
		}); err != nil {
			log.Printf("rpcd: audit log: %v", err)
		}
	})

	tr := stream.New()
	handler := func(conn transport.Connection, payload []byte, fds []int, creds transport.Credentials) error {
		return ctx.HandleFrame(conn, payload, fds, service.Credentials{PID: creds.PID, UID: creds.UID, GID: creds.GID})
	}

	log.Printf("rpcd: listening on %s", *listenURI)
	if err := tr.Listen(context.Background(), *listenURI, nil, handler); err != nil {
		log.Fatalf("rpcd: %v", err)
	}
}

// printTypeTable prints every type in registry as a table of name, class
// and member count, for operators inspecting what an -idl directory loaded.
func printTypeTable(registry *typing.Registry) {
	pl := pluralize.NewClient()
	tbl := table.New("Type", "Class", "Members")
	for _, t := range registry.Types() {
		label := pl.Pluralize("member", len(t.Members()), true)
		tbl.AddRow(t.QualifiedName(), fmt.Sprint(t.Class()), label)
	}
	tbl.Print()
}

func registerDemoMethods(demo *service.Instance) {
	demo.RegisterMethod(&service.Method{
		Interface:   "com.librpc.Demo",
		Name:        "echo",
		Description: "returns its argument unchanged",
		Func: func(call *service.Call, args *object.Value) *object.Value {
			dup, err := args.Copy()
			if err != nil {
				return object.NewError(1, err.Error(), nil)
			}
			return dup
		},
	})

	demo.RegisterMethod(&service.Method{
		Interface:   "com.librpc.Demo",
		Name:        "fail",
		Description: "always replies with an error",
		Func: func(call *service.Call, args *object.Value) *object.Value {
			return object.NewError(1, "demo: fail was called as requested", nil)
		},
	})

	demo.RegisterMethod(&service.Method{
		Interface:   "com.librpc.Demo",
		Name:        "countTo",
		Description: "streams the integers 1..n as fragments, then ends the call",
		Func: func(call *service.Call, args *object.Value) *object.Value {
			n := args.DictGetInt64("n")
			go func() {
				for i := int64(1); i <= n; i++ {
					if call.ShouldAbort() {
						return
					}
					v := object.NewInt64(i)
					if err := call.Yield(v); err != nil {
						v.Release()
						return
					}
					v.Release()
					time.Sleep(10 * time.Millisecond)
				}
				call.End()
			}()
			return service.StillRunning
		},
	})
}
