package catalog

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"merx/db"
	"merx/models"
	"merx/uploads"
	"merx/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Service owns catalog CRUD. The order engine only ever reads products
// through this collection; it never writes here.
type Service struct {
	db     *db.Mongo
	images uploads.ImageStore // nil when no asset host is configured
}

func NewService(mongo *db.Mongo, images uploads.ImageStore) *Service {
	return &Service{db: mongo, images: images}
}

func (s *Service) ListProducts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	cursor, err := s.db.Products.Find(r.Context(), bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		log.Printf("catalog: list error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	defer cursor.Close(r.Context())

	products := []models.Product{}
	if err := cursor.All(r.Context(), &products); err != nil {
		log.Printf("catalog: decode error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, products)
}

func (s *Service) GetProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var product models.Product
	err := s.db.Products.FindOne(r.Context(), bson.M{"productid": ps.ByName("productid")}).Decode(&product)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		log.Printf("catalog: get error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, product)
}

// CreateProduct accepts a multipart form: name, description, price,
// category, plus one or more "images" files pushed to the asset host.
func (s *Service) CreateProduct(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := r.ParseMultipartForm(20 << 20); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid form data")
		return
	}

	name := r.FormValue("name")
	description := r.FormValue("description")
	category := r.FormValue("category")
	priceStr := r.FormValue("price")
	if name == "" || priceStr == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Name and price are required")
		return
	}
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil || price < 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Price must be a non-negative number")
		return
	}

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "At least one image file is required")
		return
	}

	images, ok := s.uploadAll(w, r, files)
	if !ok {
		return
	}

	now := time.Now()
	product := models.Product{
		ProductID:   utils.NewID("p"),
		Name:        name,
		Description: description,
		Price:       price,
		Category:    category,
		Images:      images,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := s.db.Products.InsertOne(r.Context(), product); err != nil {
		log.Printf("catalog: insert error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"message": "Product created successfully",
		"product": product,
	})
}

// UpdateProduct changes descriptive fields; new images, when provided, are
// appended. Orders placed before the edit keep their snapshots.
func (s *Service) UpdateProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	productID := ps.ByName("productid")

	if err := r.ParseMultipartForm(20 << 20); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid form data")
		return
	}

	set := bson.M{"updated_at": time.Now()}
	if name := r.FormValue("name"); name != "" {
		set["name"] = name
	}
	if description := r.FormValue("description"); description != "" {
		set["description"] = description
	}
	if category := r.FormValue("category"); category != "" {
		set["category"] = category
	}
	if priceStr := r.FormValue("price"); priceStr != "" {
		price, err := strconv.ParseFloat(priceStr, 64)
		if err != nil || price < 0 {
			utils.RespondWithError(w, http.StatusBadRequest, "Price must be a non-negative number")
			return
		}
		set["price"] = price
	}

	update := bson.M{"$set": set}
	if files := r.MultipartForm.File["images"]; len(files) > 0 {
		images, ok := s.uploadAll(w, r, files)
		if !ok {
			return
		}
		update["$push"] = bson.M{"images": bson.M{"$each": images}}
	}

	var updated models.Product
	err := s.db.Products.FindOneAndUpdate(r.Context(),
		bson.M{"productid": productID},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		log.Printf("catalog: update error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"message": "Product updated successfully",
		"product": updated,
	})
}

func (s *Service) DeleteProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	productID := ps.ByName("productid")

	var product models.Product
	err := s.db.Products.FindOneAndDelete(r.Context(), bson.M{"productid": productID}).Decode(&product)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		log.Printf("catalog: delete error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	s.destroyAll(r, product.Images)

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Product deleted successfully"})
}

func (s *Service) BulkDeleteProducts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input struct {
		IDs []string `json:"ids"`
	}
	if err := readJSON(r, &input); err != nil || len(input.IDs) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request. Provide an array of product IDs.")
		return
	}

	filter := bson.M{"productid": bson.M{"$in": input.IDs}}

	cursor, err := s.db.Products.Find(r.Context(), filter)
	if err != nil {
		log.Printf("catalog: bulk-delete find error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	var doomed []models.Product
	if err := cursor.All(r.Context(), &doomed); err != nil {
		log.Printf("catalog: bulk-delete decode error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if _, err := s.db.Products.DeleteMany(r.Context(), filter); err != nil {
		log.Printf("catalog: bulk-delete error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	for _, p := range doomed {
		s.destroyAll(r, p.Images)
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Products and their images deleted successfully."})
}
