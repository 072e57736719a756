package form

// Kind is how a control stores and validates its value
type Kind string

const (
	KindText     Kind = "text"
	KindTextarea Kind = "textarea"
	KindNumber   Kind = "number"  // integer quantity
	KindDecimal  Kind = "decimal" // comma or dot separator
	KindDate     Kind = "date"
	KindSelect   Kind = "select"
	KindCheckbox Kind = "checkbox"
	KindHidden   Kind = "hidden" // bookkeeping, never submitted
)

// Field describes one control of the survey form
type Field struct {
	ID      string
	Kind    Kind
	Default string
	Options []string
}

// Form variants
const (
	TypeCabling = "utp_fibra"
	TypeCameras = "cameras"
)

// Controls the draft layer relies on
const (
	FieldDraftID  = "draft_id"
	FieldRecordID = "record_id"
	FieldFormType = "tipo_formulario"
	FieldCustomer = "cliente_nome"
	FieldDate     = "data_avaliacao"
	FieldStatus   = "status"
)

const defaultStatus = "aberto"

var supplierOptions = []string{"nortetel", "cliente"}

func text(id string) Field     { return Field{ID: id, Kind: KindText} }
func area(id string) Field     { return Field{ID: id, Kind: KindTextarea} }
func number(id string) Field   { return Field{ID: id, Kind: KindNumber} }
func checkbox(id string) Field { return Field{ID: id, Kind: KindCheckbox} }

// Catalog is the survey form in document order
var Catalog = []Field{
	{ID: FieldDraftID, Kind: KindHidden},
	{ID: FieldRecordID, Kind: KindHidden},
	{ID: FieldFormType, Kind: KindSelect, Default: TypeCabling, Options: []string{TypeCabling, TypeCameras}},

	// Dados gerais
	text(FieldCustomer),
	{ID: FieldDate, Kind: KindDate},
	text("local"),
	text("objeto"),
	{ID: FieldStatus, Kind: KindSelect, Default: defaultStatus},
	text("equipe"),
	text("responsavel_avaliacao"),
	text("contato"),
	text("email_cliente"),
	area("escopo_texto"),
	checkbox("servico_fora_montes_claros"),
	checkbox("servico_intermediario"),

	// Quantitativo 01 - cabeamento UTP
	{ID: "q1_categoria_cab", Kind: KindSelect, Options: []string{"Cat5e", "Cat6", "Cat6a"}},
	checkbox("q1_blindado"),
	checkbox("q1_novo_patch_panel"),
	checkbox("q1_incluir_guia"),
	number("q1_qtd_pontos_rede"),
	number("q1_qtd_cabos"),
	number("q1_qtd_portas_patch_panel"),
	number("q1_qtd_patch_cords"),
	text("q1_marca_cab"),
	text("q1_modelo_patch_panel"),
	number("q1_qtd_guias_cabos"),
	text("q1_patch_cords_modelo"),
	text("q1_patch_cords_cor"),
	text("q1_patch_panel_existente_nome"),

	// Quantitativo 02 - switch
	checkbox("q2_novo_switch"),
	{ID: "q2_fornecedor_switch", Kind: KindSelect, Options: supplierOptions},
	text("q2_modelo_switch"),
	text("q2_switch_foto_url"),
	text("q2_switch_existente_nome"),
	area("q2_observacoes"),

	// Quantitativo 03 - fibra optica
	text("q3_tipo_fibra"),
	number("q3_qtd_fibras_por_cabo"),
	text("q3_tipo_conector"),
	checkbox("q3_novo_dio"),
	checkbox("q3_caixa_terminacao"),
	text("q3_tipo_cabo_optico"),
	checkbox("q3_caixa_emenda"),
	number("q3_qtd_cabos"),
	{ID: "q3_tamanho_total_m", Kind: KindDecimal},
	number("q3_qtd_fibras"),
	number("q3_qtd_portas_dio"),
	number("q3_qtd_cordoes_opticos"),
	text("q3_marca_cab_optico"),
	text("q3_modelo_dio"),
	text("q3_modelo_cordao_optico"),
	area("q3_observacoes"),

	// Quantitativo 04 - cameras e ativos
	checkbox("q4_camera"),
	checkbox("q4_nvr_dvr"),
	checkbox("q4_conversor_midia"),
	checkbox("q4_gbic"),
	text("q4_conversor_midia_modelo"),
	text("q4_gbic_modelo"),
	checkbox("q4_camera_nova"),
	text("q4_camera_modelo"),
	number("q4_camera_qtd"),
	{ID: "q4_camera_fornecedor", Kind: KindSelect, Options: supplierOptions},
	text("q4_nvr_dvr_modelo"),

	// Quantitativo 05 - infraestrutura
	checkbox("q5_nova_eletrocalha"),
	checkbox("q5_novo_eletroduto"),
	checkbox("q5_novo_rack"),
	checkbox("q5_instalacao_eletrica"),
	checkbox("q5_nobreak"),
	checkbox("q5_serralheria"),
	text("q5_eletrocalha_modelo"),
	number("q5_eletrocalha_qtd"),
	text("q5_eletroduto_modelo"),
	number("q5_eletroduto_qtd"),
	text("q5_rack_modelo"),
	number("q5_rack_qtd"),
	text("q5_nobreak_modelo"),
	number("q5_nobreak_qtd"),
	area("q5_serralheria_descricao"),
	area("q5_instalacao_eletrica_obs"),

	// Imagens de localizacao
	text("localizacao_imagem1_url"),
	text("localizacao_imagem2_url"),

	// Pre-requisitos
	checkbox("pre_trabalho_altura"),
	checkbox("pre_plataforma"),
	text("pre_plataforma_modelo"),
	number("pre_plataforma_dias"),
	checkbox("pre_fora_horario_comercial"),
	checkbox("pre_veiculo_nortetel"),
	checkbox("pre_container_materiais"),

	// Tabela 4 - mao de obra
	number("encarregado_dias"),
	number("instalador_dias"),
	number("auxiliar_dias"),
	number("tecnico_de_instalacao_dias"),
	number("tecnico_em_seguranca_dias"),
	number("encarregado_hora_extra"),
	number("instalador_hora_extra"),
	number("auxiliar_hora_extra"),
	number("tecnico_de_instalacao_hora_extra"),
	number("tecnico_em_seguranca_hora_extra"),
	number("encarregado_trabalho_domingo"),
	number("instalador_trabalho_domingo"),
	number("auxiliar_trabalho_domingo"),
	number("tecnico_de_instalacao_trabalho_domingo"),
	number("tecnico_em_seguranca_trabalho_domingo"),

	// Tabela 5 - alimentacao
	number("almoco_qtd"),
	number("lanche_qtd"),

	// Cronograma e entregaveis
	checkbox("cronograma_execucao"),
	number("dias_instalacao"),
	checkbox("as_built"),
	number("dias_entrega_relatorio"),
	checkbox("art"),
}
