package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// CreateRandomBoardParams defines parameters for CreateRandomBoard.
type CreateRandomBoardParams struct {
	// Seed makes the generated board reproducible.
	Seed *int64 `form:"seed,omitempty" json:"seed,omitempty"`
}

// ListMovesParams defines parameters for ListMoves.
type ListMovesParams struct {
	// Limit keeps only the newest records.
	Limit *int `form:"limit,omitempty" json:"limit,omitempty"`
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// List live boards
	// (GET /v1/boards)
	ListBoards(w http.ResponseWriter, r *http.Request)
	// Create a board from caller data
	// (POST /v1/boards)
	CreateBoard(w http.ResponseWriter, r *http.Request)
	// Create a random demo board
	// (POST /v1/boards/random)
	CreateRandomBoard(w http.ResponseWriter, r *http.Request, params CreateRandomBoardParams)
	// Get the current board
	// (GET /v1/boards/{boardId})
	GetBoard(w http.ResponseWriter, r *http.Request, boardId string)
	// End a board session
	// (DELETE /v1/boards/{boardId})
	DeleteBoard(w http.ResponseWriter, r *http.Request, boardId string)
	// Add an item to the end of a bucket
	// (POST /v1/boards/{boardId}/buckets/{bucketId}/items)
	AddItem(w http.ResponseWriter, r *http.Request, boardId string, bucketId string)
	// Move history of a board
	// (GET /v1/boards/{boardId}/moves)
	ListMoves(w http.ResponseWriter, r *http.Request, boardId string, params ListMovesParams)
	// Move an item
	// (POST /v1/boards/{boardId}/moves)
	MoveItem(w http.ResponseWriter, r *http.Request, boardId string)
}

// ServerInterfaceWrapper converts contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandlerFunc   func(w http.ResponseWriter, r *http.Request, err error)
}

type MiddlewareFunc func(http.Handler) http.Handler

func (siw *ServerInterfaceWrapper) ListBoards(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.ListBoards(w, r)
	})
}

func (siw *ServerInterfaceWrapper) CreateBoard(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.CreateBoard(w, r)
	})
}

func (siw *ServerInterfaceWrapper) CreateRandomBoard(w http.ResponseWriter, r *http.Request) {
	var params CreateRandomBoardParams

	if err := runtime.BindQueryParameter("form", true, false, "seed", r.URL.Query(), &params.Seed); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "seed", Err: err})
		return
	}

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.CreateRandomBoard(w, r, params)
	})
}

func (siw *ServerInterfaceWrapper) GetBoard(w http.ResponseWriter, r *http.Request) {
	boardId, ok := siw.pathParam(w, r, "boardId")
	if !ok {
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetBoard(w, r, boardId)
	})
}

func (siw *ServerInterfaceWrapper) DeleteBoard(w http.ResponseWriter, r *http.Request) {
	boardId, ok := siw.pathParam(w, r, "boardId")
	if !ok {
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.DeleteBoard(w, r, boardId)
	})
}

func (siw *ServerInterfaceWrapper) AddItem(w http.ResponseWriter, r *http.Request) {
	boardId, ok := siw.pathParam(w, r, "boardId")
	if !ok {
		return
	}
	bucketId, ok := siw.pathParam(w, r, "bucketId")
	if !ok {
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.AddItem(w, r, boardId, bucketId)
	})
}

func (siw *ServerInterfaceWrapper) ListMoves(w http.ResponseWriter, r *http.Request) {
	boardId, ok := siw.pathParam(w, r, "boardId")
	if !ok {
		return
	}

	var params ListMovesParams
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &params.Limit); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "limit", Err: err})
		return
	}

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.ListMoves(w, r, boardId, params)
	})
}

func (siw *ServerInterfaceWrapper) MoveItem(w http.ResponseWriter, r *http.Request) {
	boardId, ok := siw.pathParam(w, r, "boardId")
	if !ok {
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.MoveItem(w, r, boardId)
	})
}

func (siw *ServerInterfaceWrapper) pathParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	var value string
	err := runtime.BindStyledParameterWithLocation("simple", false, name, runtime.ParamLocationPath, chi.URLParam(r, name), &value)
	if err == nil && value == "" {
		err = fmt.Errorf("empty value")
	}
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: name, Err: err})
		return "", false
	}
	return value, true
}

func (siw *ServerInterfaceWrapper) serve(w http.ResponseWriter, r *http.Request, fn http.HandlerFunc) {
	var handler http.Handler = fn
	for _, middleware := range siw.HandlerMiddlewares {
		handler = middleware(handler)
	}
	handler.ServeHTTP(w, r)
}

type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	Middlewares      []MiddlewareFunc
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// HandlerWithOptions creates http.Handler with additional options
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter

	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandlerFunc:   options.ErrorHandlerFunc,
	}

	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/v1/boards", wrapper.ListBoards)
	})
	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/v1/boards", wrapper.CreateBoard)
	})
	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/v1/boards/random", wrapper.CreateRandomBoard)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/v1/boards/{boardId}", wrapper.GetBoard)
	})
	r.Group(func(r chi.Router) {
		r.Delete(options.BaseURL+"/v1/boards/{boardId}", wrapper.DeleteBoard)
	})
	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/v1/boards/{boardId}/buckets/{bucketId}/items", wrapper.AddItem)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/v1/boards/{boardId}/moves", wrapper.ListMoves)
	})
	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/v1/boards/{boardId}/moves", wrapper.MoveItem)
	})

	return r
}
