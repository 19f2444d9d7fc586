package store

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"ergili-bookshop/internal/domain"
)

func strPtr(s string) *string { return &s }

func decPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func int32Ptr(v int32) *int32 { return &v }

// SeedSampleData loads the demo bookshop catalog into the store: six
// categories, eight books, four users and their reviews. Intended for the
// memory backend in development environments.
func (s *MemoryStore) SeedSampleData(ctx context.Context) error {
	categories := []domain.Category{
		{Name: "Roman", Icon: "fas fa-book"},
		{Name: "Bilim Kurgu", Icon: "fas fa-rocket"},
		{Name: "Tarih", Icon: "fas fa-landmark"},
		{Name: "Çocuk Kitapları", Icon: "fas fa-child"},
		{Name: "Kişisel Gelişim", Icon: "fas fa-brain"},
		{Name: "Akademik", Icon: "fas fa-graduation-cap"},
	}
	for i := range categories {
		if _, err := s.CreateCategory(ctx, &categories[i]); err != nil {
			return fmt.Errorf("seed: create category %q: %w", categories[i].Name, err)
		}
	}

	products := []domain.Product{
		{
			Name:               "Suç ve Ceza",
			Description:        strPtr("Fyodor Dostoyevski'nin en ünlü eserlerinden. Sıradan bir öğrenci olan Raskolnikov'un düşüncelerini ve eylemlerini konu alır."),
			Price:              decimal.NewFromInt(89),
			DiscountPrice:      decPtr(75),
			CategoryID:         1,
			ImageURL:           "https://images.pexels.com/photos/159711/books-bookstore-book-reading-159711.jpeg",
			InStock:            true,
			IsFeatured:         true,
			IsBestseller:       true,
			DiscountPercentage: int32Ptr(15),
		},
		{
			Name:        "Dune",
			Description: strPtr("Frank Herbert'in kaleme aldığı bilim kurgu klasiği, uzak bir gelecekte geçen epik bir macera."),
			Price:       decimal.NewFromInt(129),
			CategoryID:  2,
			ImageURL:    "https://images.pexels.com/photos/2067569/pexels-photo-2067569.jpeg",
			InStock:     true,
			IsFeatured:  true,
			IsNew:       true,
		},
		{
			Name:        "Kişisel Gelişim ve Motivasyon",
			Description: strPtr("Hayatınızı değiştirecek en etkili kişisel gelişim teknikleri ve motivasyon stratejileri."),
			Price:       decimal.NewFromInt(75),
			CategoryID:  5,
			ImageURL:    "https://images.pexels.com/photos/904616/pexels-photo-904616.jpeg",
			InStock:     true,
			IsFeatured:  true,
		},
		{
			Name:               "Osmanlı İmparatorluğu Tarihi",
			Description:        strPtr("Detaylı anlatımlarla Osmanlı İmparatorluğu'nun kuruluşundan yıkılışına kadar olan tarihsel süreci."),
			Price:              decimal.NewFromInt(145),
			DiscountPrice:      decPtr(120),
			CategoryID:         3,
			ImageURL:           "https://images.pexels.com/photos/3747279/pexels-photo-3747279.jpeg",
			InStock:            true,
			IsFeatured:         true,
			DiscountPercentage: int32Ptr(15),
		},
		{
			Name:         "1984",
			Description:  strPtr("George Orwell'in distopik klasiği, totaliter bir rejim altında yaşayan Winston Smith'in hikayesi."),
			Price:        decimal.NewFromInt(65),
			CategoryID:   1,
			ImageURL:     "https://images.pexels.com/photos/1907785/pexels-photo-1907785.jpeg",
			InStock:      true,
			IsBestseller: true,
		},
		{
			Name:               "Çocuk Masalları Antolojisi",
			Description:        strPtr("Tüm zamanların en sevilen çocuk masallarını içeren renkli resimli kitap."),
			Price:              decimal.NewFromInt(95),
			DiscountPrice:      decPtr(75),
			CategoryID:         4,
			ImageURL:           "https://images.pexels.com/photos/264635/pexels-photo-264635.jpeg",
			InStock:            true,
			IsBestseller:       true,
			DiscountPercentage: int32Ptr(20),
		},
		{
			Name:        "Python ile Veri Analizi",
			Description: strPtr("Python programlama dili kullanarak veri analizi ve makine öğrenmesi uygulamaları."),
			Price:       decimal.NewFromInt(175),
			CategoryID:  6,
			ImageURL:    "https://images.pexels.com/photos/2170/creative-desk-pens-school.jpg",
			InStock:     true,
			IsNew:       true,
		},
		{
			Name:               "Hayvan Çiftliği",
			Description:        strPtr("George Orwell'in alegorik romanı, bir çiftlikte yaşanan devrim ve sonrasını anlatır."),
			Price:              decimal.NewFromInt(55),
			DiscountPrice:      decPtr(45),
			CategoryID:         1,
			ImageURL:           "https://images.pexels.com/photos/2099691/pexels-photo-2099691.jpeg",
			InStock:            true,
			IsBestseller:       true,
			DiscountPercentage: int32Ptr(15),
		},
	}
	for i := range products {
		if _, err := s.CreateProduct(ctx, &products[i]); err != nil {
			return fmt.Errorf("seed: create product %q: %w", products[i].Name, err)
		}
	}

	users := []domain.User{
		{Username: "ayse_yilmaz", Email: "ayse@example.com", Password: "password123", FullName: strPtr("Ayşe Yılmaz"), Avatar: strPtr("https://randomuser.me/api/portraits/women/12.jpg")},
		{Username: "mehmet_kaya", Email: "mehmet@example.com", Password: "password123", FullName: strPtr("Mehmet Kaya"), Avatar: strPtr("https://randomuser.me/api/portraits/men/22.jpg")},
		{Username: "zeynep_demir", Email: "zeynep@example.com", Password: "password123", FullName: strPtr("Zeynep Demir"), Avatar: strPtr("https://randomuser.me/api/portraits/women/32.jpg")},
		{Username: "admin", Email: "admin@ergilishop.com", Password: "admin123", FullName: strPtr("Site Yöneticisi"), Avatar: strPtr("https://randomuser.me/api/portraits/men/1.jpg")},
	}
	for i := range users {
		if _, err := s.CreateUser(ctx, &users[i]); err != nil {
			return fmt.Errorf("seed: create user %q: %w", users[i].Username, err)
		}
	}

	reviews := []domain.Review{
		{ProductID: 1, UserID: 1, Rating: 5, Comment: strPtr("Harika bir roman, Dostoyevski'nin dehasını gösteren bir başyapıt.")},
		{ProductID: 1, UserID: 2, Rating: 4, Comment: strPtr("Etkileyici bir hikaye ama biraz ağır bir dil kullanılmış.")},
		{ProductID: 2, UserID: 1, Rating: 4, Comment: strPtr("Bilim kurgu türünün başyapıtlarından, kesinlikle okunmalı.")},
		{ProductID: 2, UserID: 3, Rating: 5, Comment: strPtr("Muazzam bir hayal gücü ve etkileyici bir dünya yaratımı.")},
		{ProductID: 3, UserID: 2, Rating: 3, Comment: strPtr("Bazı teknikleri faydalı ama daha fazla örnek olabilirdi.")},
		{ProductID: 4, UserID: 3, Rating: 5, Comment: strPtr("Osmanlı tarihi hakkında çok detaylı bir çalışma, çok beğendim.")},
		{ProductID: 5, UserID: 1, Rating: 5, Comment: strPtr("Bugün bile geçerliliğini koruyan, insanı düşündüren bir başyapıt.")},
		{ProductID: 6, UserID: 2, Rating: 4, Comment: strPtr("Çocuğum çok sevdi, harika resimler ve eğlenceli hikayeler.")},
		{ProductID: 7, UserID: 3, Rating: 4, Comment: strPtr("Python öğrenmek için ideal, örnekler çok açıklayıcı.")},
		{ProductID: 8, UserID: 1, Rating: 4, Comment: strPtr("Kısa ama etkili bir kitap, mesajı çok net.")},
	}
	for i := range reviews {
		if _, err := s.CreateReview(ctx, &reviews[i]); err != nil {
			return fmt.Errorf("seed: create review for product %d: %w", reviews[i].ProductID, err)
		}
	}

	return nil
}
