package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/madcarpet/dreamweaver/internal/authorization"
	"github.com/madcarpet/dreamweaver/internal/constants"
	"github.com/madcarpet/dreamweaver/internal/logger"
	"github.com/madcarpet/dreamweaver/internal/middlewares"
	"github.com/madcarpet/dreamweaver/internal/models"
	"github.com/madcarpet/dreamweaver/internal/storage"
	"github.com/madcarpet/dreamweaver/internal/utils"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

var errNotObject = errors.New("request body is not a JSON object")

// readObject decodes a JSON object body, an empty body is an empty object
func readObject(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	reqBody, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	defer r.Body.Close()
	if err != nil {
		return nil, err
	}
	obj := map[string]any{}
	if len(reqBody) == 0 {
		return obj, nil
	}
	if err := json.Unmarshal(reqBody, &obj); err != nil {
		return nil, err
	}
	// "null" unmarshals into a nil map
	if obj == nil {
		return nil, errNotObject
	}
	return obj, nil
}

func internalError(w http.ResponseWriter) {
	middlewares.WriteMessage(w, http.StatusInternalServerError, constants.MsgInternalError)
}

func RootGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", constants.CntTypeHeaderText)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(constants.MsgRunning))
	}
}

// LoginPostHandler signs the request body as is, no user store is consulted
func LoginPostHandler(a authorization.Authorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := readObject(w, r)
		if err != nil {
			logger.Log.Debug("login handler error - body deserialisation error", zap.Error(err))
			middlewares.WriteMessage(w, http.StatusBadRequest, "Wrong request format")
			return
		}
		token, err := a.ProduceToken(payload)
		if err != nil {
			if errors.Is(err, authorization.ErrReservedClaim) {
				middlewares.WriteMessage(w, http.StatusBadRequest, err.Error())
				return
			}
			internalError(w)
			return
		}
		w.Header().Set("Content-Type", constants.CntTypeHeaderText)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(token))
	}
}

func PackagesGetHandler(s storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page, err := utils.ParsePage(q.Get("page"), q.Get("size"))
		if err != nil {
			middlewares.WriteMessage(w, http.StatusBadRequest, err.Error())
			return
		}
		count, err := s.Count(r.Context(), constants.PackagesCollection)
		if err != nil {
			logger.Log.Error("packages get handler error - counting packages failed", zap.Error(err))
			internalError(w)
			return
		}
		packages, err := s.Find(r.Context(), constants.PackagesCollection, nil, page)
		if err != nil {
			logger.Log.Error("packages get handler error - getting packages from database failed", zap.Error(err))
			internalError(w)
			return
		}
		if len(packages) == 0 {
			middlewares.WriteJSON(w, http.StatusOK, models.PackagesNotFound{Success: false, Error: "Product not found"})
			return
		}
		middlewares.WriteJSON(w, http.StatusOK, models.PackagesPage{Packages: packages, Count: count})
	}
}

func PackageGetHandler(s storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !utils.CheckDocumentID(id) {
			middlewares.WriteMessage(w, http.StatusBadRequest, "Wrong package id")
			return
		}
		pkg, err := s.FindByID(r.Context(), constants.PackagesCollection, id)
		if err != nil {
			logger.Log.Error("package get handler error - getting package from database failed", zap.String("id", id), zap.Error(err))
			internalError(w)
			return
		}
		if pkg == nil {
			middlewares.WriteMessage(w, http.StatusNotFound, "Package not found")
			return
		}
		middlewares.WriteJSON(w, http.StatusOK, pkg)
	}
}

func PackageDeleteHandler(s storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !utils.CheckDocumentID(id) {
			middlewares.WriteMessage(w, http.StatusBadRequest, "Wrong package id")
			return
		}
		res, err := s.DeleteByID(r.Context(), constants.PackagesCollection, id)
		if err != nil {
			logger.Log.Error("package delete handler error - deleting package failed", zap.String("id", id), zap.Error(err))
			internalError(w)
			return
		}
		middlewares.WriteJSON(w, http.StatusOK, res)
	}
}

// ReviewsGetHandler filters reviews by the query string, first value of each key
func ReviewsGetHandler(s storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := models.Filter{}
		for k, v := range r.URL.Query() {
			if !utils.CheckFieldName(k) {
				middlewares.WriteMessage(w, http.StatusBadRequest, "Wrong filter field")
				return
			}
			filter[k] = v[0]
		}
		reviews, err := s.Find(r.Context(), constants.ReviewsCollection, filter, models.Page{})
		if err != nil {
			logger.Log.Error("reviews get handler error - getting reviews from database failed", zap.Error(err))
			internalError(w)
			return
		}
		middlewares.WriteJSON(w, http.StatusOK, reviews)
	}
}

// DocumentPostHandler stores the JSON object body into collection
func DocumentPostHandler(s storage.Storage, collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := readObject(w, r)
		if err != nil {
			logger.Log.Debug("add document handler error - body deserialisation error", zap.String("collection", collection), zap.Error(err))
			middlewares.WriteMessage(w, http.StatusBadRequest, "Wrong request format")
			return
		}
		res, err := s.Insert(r.Context(), collection, doc)
		if err != nil {
			logger.Log.Error("add document handler error - inserting failed", zap.String("collection", collection), zap.Error(err))
			internalError(w)
			return
		}
		middlewares.WriteJSON(w, http.StatusOK, res)
	}
}

// OrdersGetHandler returns the orders of the authorized identity, it must run behind middlewares.Authorize
func OrdersGetHandler(s storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := middlewares.IdentityFromContext(r.Context())
		if !ok {
			logger.Log.Error("orders get handler error - getting identity from request context failed")
			internalError(w)
			return
		}
		email := r.URL.Query().Get("email")
		if err := authorization.CheckOwner(identity, email); err != nil {
			logger.Log.Debug("orders get handler - request rejected", zap.String("email", email), zap.Error(err))
			middlewares.WriteMessage(w, http.StatusForbidden, constants.MsgForbidden)
			return
		}
		orders, err := s.Find(r.Context(), constants.OrdersCollection, models.Filter{constants.OrderOwnerField: email}, models.Page{})
		if err != nil {
			logger.Log.Error("orders get handler error - getting orders from database failed", zap.Error(err))
			internalError(w)
			return
		}
		middlewares.WriteJSON(w, http.StatusOK, orders)
	}
}

func NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middlewares.WriteMessage(w, http.StatusNotFound, constants.MsgNotFoundPage)
	}
}
