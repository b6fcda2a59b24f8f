// Package httpapi exposes the mounts of a registry over HTTP.
package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/weberc2/assoofs/pkg/assoofs"
	"github.com/weberc2/assoofs/pkg/directory"
	"github.com/weberc2/assoofs/pkg/inode"
	. "github.com/weberc2/assoofs/pkg/types"
	pz "github.com/weberc2/httpeasy"
)

type API struct {
	Registry *assoofs.Registry
}

// Handler registers every route and logs requests as JSON to `w`.
func (api *API) Handler(w io.Writer) http.Handler {
	return pz.Register(pz.JSONLog(w), api.Routes()...)
}

func (api *API) Routes() []pz.Route {
	return []pz.Route{
		api.ListMountsRoute(),
		api.ListChildrenRoute(),
		api.GetChildRoute(),
		api.CreateChildRoute(),
		api.DeleteChildRoute(),
	}
}

// Inode is the JSON rendering of an inode handle.
type Inode struct {
	Ino       Ino        `json:"ino"`
	Kind      inode.Kind `json:"kind"`
	Mode      string     `json:"mode"`
	DataBlock Block      `json:"dataBlock"`
	FileSize  Byte       `json:"fileSize"`
	Children  uint64     `json:"children"`
}

func newInode(h *inode.Handle) Inode {
	return Inode{
		Ino:       h.Info.Ino,
		Kind:      h.Kind,
		Mode:      fmt.Sprintf("%#o", uint32(h.Info.Mode.Perm())),
		DataBlock: h.Info.DataBlock,
		FileSize:  h.Info.FileSize,
		Children:  h.Info.ChildrenCount,
	}
}

type logging struct {
	Message string `json:"message"`
	Mount   string `json:"mount,omitempty"`
	Ino     string `json:"ino,omitempty"`
	Name    string `json:"name,omitempty"`
	Error   string `json:"error,omitempty"`
}

const childrenPath = "/mounts/{mount}/inodes/{ino}/children"

func (api *API) ListMountsRoute() pz.Route {
	return pz.Route{
		Path:   "/mounts",
		Method: "GET",
		Handler: func(r pz.Request) pz.Response {
			return pz.Ok(
				pz.JSON(api.Registry.Mounts()),
				logging{Message: "listed mounts"},
			)
		},
	}
}

func (api *API) ListChildrenRoute() pz.Route {
	return pz.Route{
		Path:   childrenPath,
		Method: "GET",
		Handler: func(r pz.Request) pz.Response {
			l := requestLogging(r, "listing children")
			var entries []directory.Entry
			if err := api.withDir(r, func(
				fs *assoofs.FileSystem,
				dir *inode.Handle,
			) error {
				var err error
				entries, err = fs.ListChildren(dir)
				return err
			}); err != nil {
				return failure(err, l)
			}
			l.Message = "listed children"
			return pz.Ok(pz.JSON(entries), l)
		},
	}
}

func (api *API) GetChildRoute() pz.Route {
	return pz.Route{
		Path:   childrenPath + "/{name}",
		Method: "GET",
		Handler: func(r pz.Request) pz.Response {
			l := requestLogging(r, "looking up child")
			var child Inode
			if err := api.withDir(r, func(
				fs *assoofs.FileSystem,
				dir *inode.Handle,
			) error {
				h, err := fs.Lookup(dir, r.Vars["name"])
				if err != nil {
					return err
				}
				child = newInode(h)
				return nil
			}); err != nil {
				return failure(err, l)
			}
			l.Message = "found child"
			return pz.Ok(pz.JSON(child), l)
		},
	}
}

// CreateRequest is the body of a create call. A zero `Mode` selects 0644 for
// files and 0755 for directories.
type CreateRequest struct {
	Name string `json:"name"`
	Dir  bool   `json:"dir"`
	Mode Mode   `json:"mode"`
}

func (api *API) CreateChildRoute() pz.Route {
	return pz.Route{
		Path:   childrenPath,
		Method: "POST",
		Handler: func(r pz.Request) pz.Response {
			l := requestLogging(r, "creating child")
			var req CreateRequest
			if err := r.JSON(&req); err != nil {
				l.Error = err.Error()
				return pz.BadRequest(
					pz.Stringf("parsing create request: %v", err),
					l,
				)
			}
			l.Name = req.Name

			var child Inode
			if err := api.withDir(r, func(
				fs *assoofs.FileSystem,
				dir *inode.Handle,
			) error {
				var h *inode.Handle
				var err error
				if req.Dir {
					if req.Mode == 0 {
						req.Mode = 0o755
					}
					h, err = fs.Mkdir(dir, req.Name, req.Mode)
				} else {
					if req.Mode == 0 {
						req.Mode = 0o644
					}
					h, err = fs.Create(dir, req.Name, req.Mode)
				}
				if err != nil {
					return err
				}
				child = newInode(h)
				return nil
			}); err != nil {
				return failure(err, l)
			}
			l.Message = "created child"
			return pz.Created(pz.JSON(child), l)
		},
	}
}

func (api *API) DeleteChildRoute() pz.Route {
	return pz.Route{
		Path:   childrenPath + "/{name}",
		Method: "DELETE",
		Handler: func(r pz.Request) pz.Response {
			l := requestLogging(r, "removing child")
			if err := api.withDir(r, func(
				fs *assoofs.FileSystem,
				dir *inode.Handle,
			) error {
				return fs.Remove(dir, r.Vars["name"])
			}); err != nil {
				return failure(err, l)
			}
			l.Message = "removed child"
			return pz.Ok(pz.String("Removed"), l)
		},
	}
}

// withDir resolves the request's mount and inode and runs `f` while holding
// the mount's lock.
func (api *API) withDir(
	r pz.Request,
	f func(fs *assoofs.FileSystem, dir *inode.Handle) error,
) error {
	ino, err := strconv.ParseUint(r.Vars["ino"], 10, 64)
	if err != nil {
		return &badInoErr{raw: r.Vars["ino"], err: err}
	}
	m, err := api.Registry.Get(r.Vars["mount"])
	if err != nil {
		return err
	}
	return m.Do(func(fs *assoofs.FileSystem) error {
		dir, err := fs.Get(Ino(ino))
		if err != nil {
			return err
		}
		return f(fs, dir)
	})
}

type badInoErr struct {
	raw string
	err error
}

func (err *badInoErr) Error() string {
	return fmt.Sprintf("parsing ino `%s`: %v", err.raw, err.err)
}

func (err *badInoErr) Unwrap() error { return err.err }

func requestLogging(r pz.Request, message string) logging {
	return logging{
		Message: message,
		Mount:   r.Vars["mount"],
		Ino:     r.Vars["ino"],
		Name:    r.Vars["name"],
	}
}

func failure(err error, l logging) pz.Response {
	l.Error = err.Error()
	var badIno *badInoErr
	switch {
	case errors.As(err, &badIno):
		return pz.BadRequest(pz.String(err.Error()), l)
	case errors.Is(err, NotFoundErr), errors.Is(err, MountNotFoundErr):
		return pz.NotFound(pz.String(err.Error()), l)
	case errors.Is(err, ExistsErr), errors.Is(err, DirNotEmptyErr):
		return pz.Conflict(pz.String(err.Error()), l)
	case errors.Is(err, NameTooLongErr),
		errors.Is(err, InvalidNameErr),
		errors.Is(err, NotADirErr),
		errors.Is(err, DirectoryFullErr),
		errors.Is(err, TableFullErr),
		errors.Is(err, OutOfBlocksErr):
		return pz.BadRequest(pz.String(err.Error()), l)
	default:
		return pz.InternalServerError(l)
	}
}
